package jsonfile

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/ledger"
	"github.com/ArionMiles/chatledger/pkg/locale"
)

func newLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	l, err := locale.Get("id")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "data", "ledger.json")
	cal := ledger.Calendar{
		Locale:   l,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, 10, 16, 9, 0, 0, 0, time.UTC) },
	}
	store, err := New(Config{FilePath: path}, cal, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return store, path
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Config{}, ledger.Calendar{}, nil)
	assert.Error(t, err)
}

func TestPartition_NotProvisioned(t *testing.T) {
	store, _ := newLedger(t)

	_, err := store.Partition(context.Background())
	assert.ErrorIs(t, err, api.ErrPartitionNotFound)
}

func TestLedger_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store, path := newLedger(t)
	require.NoError(t, store.CreatePartition(ctx, "Oktober"))
	require.NoError(t, store.CreatePartition(ctx, "Oktober"), "provisioning twice is a no-op")

	p, err := store.Partition(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Oktober", p.Name())

	txs := []api.Transaction{
		{ID: "TX-AAAAA", Date: "2025-10-15", Description: "Nasi goreng", Amount: decimal.NewFromInt(15000), Flow: api.FlowSpending, Category: api.CategoryFoodDrink},
		{ID: "TX-BBBBB", Date: "2025-10-16", Description: "Gaji", Amount: decimal.NewFromInt(2000000), Flow: api.FlowIncome, Category: api.CategoryIncome},
	}
	for _, tx := range txs {
		require.NoError(t, p.Append(ctx, tx))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"category": "Makan & Minum"`)
	assert.NotContains(t, string(data), `\u0026`, "labels are written unescaped")

	found, err := p.FindByIDs(ctx, []string{"TX-AAAAA", "TX-BBBBB", "TX-NOPE0"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, 1, found["TX-AAAAA"].Row)
	assert.Equal(t, 2, found["TX-BBBBB"].Row)
	assert.Equal(t, api.CategoryFoodDrink, found["TX-AAAAA"].Record.Category)

	amount := decimal.NewFromInt(20000)
	merged, err := p.Merge(ctx, found["TX-AAAAA"], api.PartialTransaction{Amount: &amount})
	require.NoError(t, err)
	assert.True(t, merged.Amount.Equal(amount))
	assert.Equal(t, "Nasi goreng", merged.Description)

	require.NoError(t, p.Blank(ctx, found["TX-BBBBB"]))

	found, err = p.FindByIDs(ctx, []string{"TX-AAAAA", "TX-BBBBB"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found["TX-AAAAA"].Record.Amount.Equal(amount))

	// Blanked rows stay in place, so later rows keep their position.
	require.NoError(t, p.Append(ctx, api.Transaction{ID: "TX-CCCCC", Date: "2025-10-16", Description: "Bensin", Amount: decimal.NewFromInt(1), Flow: api.FlowSpending, Category: api.CategoryTransport}))
	found, err = p.FindByIDs(ctx, []string{"TX-CCCCC"})
	require.NoError(t, err)
	assert.Equal(t, 3, found["TX-CCCCC"].Row)
}

func TestBlank_MissingRow(t *testing.T) {
	ctx := context.Background()
	store, _ := newLedger(t)
	require.NoError(t, store.CreatePartition(ctx, "Oktober"))
	p, err := store.Partition(ctx)
	require.NoError(t, err)

	err = p.Blank(ctx, api.RowRef{Partition: "Oktober", Row: 7})
	var storeErr *api.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, api.OpDelete, storeErr.Op)
}
