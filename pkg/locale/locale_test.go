package locale

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/chatledger/pkg/api"
)

func TestGet(t *testing.T) {
	l, err := Get("ID")
	require.NoError(t, err)
	assert.Equal(t, "id", l.Code)

	_, err = Get("fr")
	assert.Error(t, err)
}

func TestMonthName(t *testing.T) {
	id, _ := Get("id")
	en, _ := Get("en")

	tests := []struct {
		month  time.Month
		wantID string
		wantEN string
	}{
		{time.January, "Januari", "January"},
		{time.May, "Mei", "May"},
		{time.August, "Agustus", "August"},
		{time.October, "Oktober", "October"},
		{time.December, "Desember", "December"},
	}
	for _, tc := range tests {
		ts := time.Date(2025, tc.month, 15, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, tc.wantID, id.MonthName(ts))
		assert.Equal(t, tc.wantEN, en.MonthName(ts))
	}
}

func TestParseCategory(t *testing.T) {
	l, _ := Get("id")

	tests := []struct {
		label  string
		want   api.Category
		wantOK bool
	}{
		{"Makan & Minum", api.CategoryFoodDrink, true},
		{"makan & minum", api.CategoryFoodDrink, true},
		{"Pemasukan", api.CategoryIncome, true},
		{"Food&Drink", api.CategoryFoodDrink, true},
		{" Lainnya ", api.CategoryOther, true},
		{"Groceries", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.label, func(t *testing.T) {
			got, ok := l.ParseCategory(tc.label)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCategoryRoundTrip(t *testing.T) {
	l, _ := Get("id")
	for _, c := range api.Categories {
		assert.Equal(t, c, l.CategoryFromStore(l.CategoryLabel(c)))
	}
	assert.Equal(t, api.Category("Handwritten"), l.CategoryFromStore("Handwritten"))
	assert.Equal(t, api.Category(""), l.CategoryFromStore(""))
	assert.Len(t, l.CategoryLabels(), len(api.Categories))
}

func TestParseFlow(t *testing.T) {
	f, ok := ParseFlow("income")
	assert.True(t, ok)
	assert.Equal(t, api.FlowIncome, f)

	f, ok = ParseFlow("Spending")
	assert.True(t, ok)
	assert.Equal(t, api.FlowSpending, f)

	_, ok = ParseFlow("Transfer")
	assert.False(t, ok)
}

func TestFormatAmount(t *testing.T) {
	id, _ := Get("id")
	en, _ := Get("en")

	assert.Equal(t, "Rp 15.000", id.FormatAmount(decimal.NewFromInt(15000)))
	assert.Equal(t, "Rp 2.000.000", id.FormatAmount(decimal.NewFromInt(2000000)))
	assert.Equal(t, "$ 15,000", en.FormatAmount(decimal.NewFromInt(15000)))
}
