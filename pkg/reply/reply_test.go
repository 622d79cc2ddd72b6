package reply

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/locale"
)

func presenter(t *testing.T, code string) Presenter {
	t.Helper()
	l, err := locale.Get(code)
	require.NoError(t, err)
	return Presenter{Locale: l}
}

func TestRender_Added(t *testing.T) {
	p := presenter(t, "id")
	got := p.Render(api.Added{
		IDs: []string{"TX-AB12C"},
		Transactions: []api.Transaction{{
			ID:          "TX-AB12C",
			Date:        "2025-10-15",
			Description: "Beli nasi goreng",
			Amount:      decimal.NewFromInt(15000),
			Flow:        api.FlowSpending,
			Category:    api.CategoryFoodDrink,
		}},
	})

	want := "📝 *TRANSAKSI BERHASIL DICATAT*\n\n" +
		"━━━━━━━━━━━━━━━━━━\n" +
		"🆔 *ID:* `TX-AB12C`\n" +
		"📅 *Date:* 2025-10-15\n" +
		"📝 *Transaction:* Beli nasi goreng\n" +
		"💰 *Nominal:* Rp 15.000\n" +
		"📉 *Cashflow:* Spending\n" +
		"🍽️ *Category:*  Makan & Minum\n" +
		"━━━━━━━━━━━━━━━━━━"
	assert.Equal(t, want, got.Text)
	assert.Equal(t, ReactionAdded, got.Reaction)
}

func TestRender_UnknownCategoryFallsBack(t *testing.T) {
	p := presenter(t, "id")
	got := p.Render(api.Edited{ID: "TX-AB12C", Transaction: api.Transaction{Category: "Handwritten", Flow: "?"}})

	assert.Contains(t, got.Text, "📂 *Category:*  Handwritten")
	assert.Contains(t, got.Text, "📊 *Cashflow:*")
	assert.Equal(t, ReactionEdited, got.Reaction)
}

func TestRender_Simple(t *testing.T) {
	p := presenter(t, "id")
	texts := p.Locale.Texts

	tests := []struct {
		name     string
		outcome  api.Outcome
		text     string
		reaction string
	}{
		{"edit missing data", api.EditMissingData{}, texts.EditMissingData, ""},
		{"edit failed", api.EditFailed{}, texts.EditFailed, ReactionFailed},
		{"delete failed", api.DeleteFailed{}, texts.DeleteFailed, ReactionFailed},
		{"deleted", api.Deleted{IDs: []string{"TX-AAAAA", "TX-BBBBB"}}, "🗑️ *TRANSAKSI BERHASIL DIHAPUS*\n\nTransaksi dengan *ID* `TX-AAAAA, TX-BBBBB` telah berhasil dihapus.", ReactionDeleted},
		{"chat", api.Chatted{Message: "Halo!"}, "Halo!", ReactionChat},
		{"failed", api.Failed{Reason: "boom"}, texts.GenericFailure, ReactionFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Render(tc.outcome)
			assert.Equal(t, tc.text, got.Text)
			assert.Equal(t, tc.reaction, got.Reaction)
		})
	}
}

func TestFailure_English(t *testing.T) {
	p := presenter(t, "en")
	assert.Equal(t, p.Locale.Texts.GenericFailure, p.Failure().Text)
}
