package locale

import (
	"golang.org/x/text/language"

	"github.com/ArionMiles/chatledger/pkg/api"
)

var indonesian = &Locale{
	Code:     "id",
	Tag:      language.Indonesian,
	Language: "Bahasa Indonesia",
	Months: [12]string{
		"Januari", "Februari", "Maret", "April", "Mei", "Juni",
		"Juli", "Agustus", "September", "Oktober", "November", "Desember",
	},
	Categories: map[api.Category]string{
		api.CategoryFoodDrink:      "Makan & Minum",
		api.CategoryTransport:      "Transportasi",
		api.CategoryMobileInternet: "Pulsa & Internet",
		api.CategoryEntertainment:  "Hiburan",
		api.CategoryShopping:       "Belanja",
		api.CategoryBills:          "Tagihan",
		api.CategoryIncome:         "Pemasukan",
		api.CategoryOther:          "Lainnya",
	},
	Currency: "Rp",
	Texts: Texts{
		AddedTitle:       "📝 *TRANSAKSI BERHASIL DICATAT*",
		EditedTitle:      "✏️ *TRANSAKSI BERHASIL DIPERBARUI*",
		DeletedTitle:     "🗑️ *TRANSAKSI BERHASIL DIHAPUS*",
		DeletedBody:      "Transaksi dengan *ID* `%s` telah berhasil dihapus.",
		EditMissingData:  "Mohon sertakan data transaksi yang baru untuk mengedit.",
		EditFailed:       "Gagal mengedit transaksi. Pastikan ID yang diberikan benar dan coba lagi.",
		DeleteFailed:     "Gagal menghapus transaksi. Pastikan ID yang diberikan benar dan coba lagi.",
		GenericFailure:   "Terjadi kesalahan saat memproses permintaan Anda. Silakan coba lagi nanti.",
		FieldID:          "ID",
		FieldDate:        "Date",
		FieldTransaction: "Transaction",
		FieldNominal:     "Nominal",
		FieldCashflow:    "Cashflow",
		FieldCategory:    "Category",
		HelpAdd:          `📝 *Tambah Transaksi:* Cukup ketik natural (Contoh: "Beli nasi goreng 15rb" atau "Gaji bulanan masuk 2 juta").`,
		HelpEdit:         `✏️ *Edit Transaksi:* Sebutkan ID transaksi dan transaksi barunya (Contoh: "Edit TX-1A2B3 nominalnya jadi 20000").`,
		HelpDelete:       `🗑️ *Hapus Transaksi:* Sebutkan ID transaksinya (Contoh: "Hapus transaksi TX-1A2B3").`,
	},
}

var english = &Locale{
	Code:     "en",
	Tag:      language.English,
	Language: "English",
	Months: [12]string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	},
	Categories: map[api.Category]string{
		api.CategoryFoodDrink:      "Food & Drink",
		api.CategoryTransport:      "Transport",
		api.CategoryMobileInternet: "Mobile & Internet",
		api.CategoryEntertainment:  "Entertainment",
		api.CategoryShopping:       "Shopping",
		api.CategoryBills:          "Bills",
		api.CategoryIncome:         "Income",
		api.CategoryOther:          "Other",
	},
	Currency: "$",
	Texts: Texts{
		AddedTitle:       "📝 *TRANSACTION RECORDED*",
		EditedTitle:      "✏️ *TRANSACTION UPDATED*",
		DeletedTitle:     "🗑️ *TRANSACTION DELETED*",
		DeletedBody:      "Transaction with *ID* `%s` has been deleted.",
		EditMissingData:  "Please include the new transaction data to edit.",
		EditFailed:       "Could not edit the transaction. Make sure the ID is correct and try again.",
		DeleteFailed:     "Could not delete the transaction. Make sure the ID is correct and try again.",
		GenericFailure:   "Something went wrong while processing your request. Please try again later.",
		FieldID:          "ID",
		FieldDate:        "Date",
		FieldTransaction: "Transaction",
		FieldNominal:     "Nominal",
		FieldCashflow:    "Cashflow",
		FieldCategory:    "Category",
		HelpAdd:          `📝 *Add a transaction:* just type naturally (e.g. "Fried rice 15k" or "Monthly salary 2000").`,
		HelpEdit:         `✏️ *Edit a transaction:* give the ID and the new value (e.g. "Edit TX-1A2B3 amount to 20").`,
		HelpDelete:       `🗑️ *Delete a transaction:* give the ID (e.g. "Delete transaction TX-1A2B3").`,
	},
}
