// Package jsonfile implements a ledger store kept in a single local JSON
// file, for development and for running without Google credentials.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/ledger"
	"github.com/ArionMiles/chatledger/pkg/locale"
)

// file is the on-disk layout.
type file struct {
	Partitions map[string][]record `json:"partitions"`
}

// record is one stored row. A blanked row is the zero record.
type record struct {
	ID          string           `json:"id"`
	Date        string           `json:"date"`
	Description string           `json:"transactions"`
	Amount      *decimal.Decimal `json:"nominal,omitempty"`
	Flow        string           `json:"cashflow"`
	Category    string           `json:"category"`
}

// Config holds configuration for the JSON file ledger.
type Config struct {
	// FilePath is the path to the JSON ledger file.
	FilePath string
}

// Ledger reads and rewrites the whole file on every operation.
type Ledger struct {
	filePath string
	calendar ledger.Calendar
	locale   *locale.Locale
	mu       sync.Mutex
	logger   *slog.Logger
}

// New creates a JSON file ledger. The file is created on first provisioning.
func New(cfg Config, cal ledger.Calendar, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	l := &Ledger{
		filePath: cfg.FilePath,
		calendar: cal,
		locale:   cal.Locale,
		logger:   logger,
	}

	logger.Info("json ledger initialized", "file", cfg.FilePath)
	return l, nil
}

// CreatePartition provisions a month partition. It is a no-op if the
// partition already exists.
func (l *Ledger) CreatePartition(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.load()
	if err != nil {
		return err
	}
	if _, ok := f.Partitions[name]; ok {
		return nil
	}
	f.Partitions[name] = []record{}
	if err := l.save(f); err != nil {
		return err
	}
	l.logger.Info("created partition", "name", name)
	return nil
}

// Partition resolves the partition for the current month.
func (l *Ledger) Partition(_ context.Context) (api.Partition, error) {
	name := l.calendar.PartitionName()

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.load()
	if err != nil {
		return nil, api.WrapStore(api.OpLoad, err)
	}
	if _, ok := f.Partitions[name]; !ok {
		return nil, api.WrapStore(api.OpLoad, fmt.Errorf("partition %q: %w", name, api.ErrPartitionNotFound))
	}
	return &partition{ledger: l, name: name}, nil
}

func (l *Ledger) load() (*file, error) {
	f := &file{Partitions: make(map[string][]record)}

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("reading ledger file: %w", err)
	}
	if len(data) == 0 {
		return f, nil
	}

	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing ledger file: %w", err)
	}
	if f.Partitions == nil {
		f.Partitions = make(map[string][]record)
	}
	return f, nil
}

// save writes the whole file through a temporary file and a rename.
func (l *Ledger) save(f *file) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("marshaling json: %w", err)
	}

	if dir := filepath.Dir(l.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	tmp := l.filePath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing json file: %w", err)
	}
	if err := os.Rename(tmp, l.filePath); err != nil {
		return fmt.Errorf("replacing json file: %w", err)
	}
	return nil
}

// update loads the file, runs fn on the partition's rows and saves the result.
func (l *Ledger) update(name string, fn func(rows []record) ([]record, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.load()
	if err != nil {
		return err
	}
	rows, ok := f.Partitions[name]
	if !ok {
		return fmt.Errorf("partition %q: %w", name, api.ErrPartitionNotFound)
	}
	rows, err = fn(rows)
	if err != nil {
		return err
	}
	f.Partitions[name] = rows
	return l.save(f)
}

type partition struct {
	ledger *Ledger
	name   string
}

func (p *partition) Name() string {
	return p.name
}

func (p *partition) Append(_ context.Context, tx api.Transaction) error {
	err := p.ledger.update(p.name, func(rows []record) ([]record, error) {
		return append(rows, p.encode(tx)), nil
	})
	if err != nil {
		return api.WrapStore(api.OpAdd, err)
	}
	p.ledger.logger.Debug("appended row", "partition", p.name, "id", tx.ID)
	return nil
}

func (p *partition) FindByIDs(_ context.Context, ids []string) (map[string]api.RowRef, error) {
	p.ledger.mu.Lock()
	f, err := p.ledger.load()
	p.ledger.mu.Unlock()
	if err != nil {
		return nil, api.WrapStore(api.OpLoad, err)
	}

	rows := f.Partitions[p.name]
	rowIDs := make([]string, len(rows))
	for i, r := range rows {
		rowIDs[i] = r.ID
	}
	index := ledger.FirstRows(rowIDs)

	found := make(map[string]api.RowRef, len(ids))
	for _, id := range ids {
		i, ok := index[id]
		if !ok {
			continue
		}
		found[id] = api.RowRef{Partition: p.name, Row: i + 1, Record: p.decode(rows[i])}
	}
	return found, nil
}

func (p *partition) Blank(_ context.Context, ref api.RowRef) error {
	err := p.ledger.update(p.name, func(rows []record) ([]record, error) {
		i := ref.Row - 1
		if i < 0 || i >= len(rows) {
			return nil, fmt.Errorf("row %d of %q does not exist", ref.Row, p.name)
		}
		rows[i] = record{}
		return rows, nil
	})
	return api.WrapStore(api.OpDelete, err)
}

func (p *partition) Merge(_ context.Context, ref api.RowRef, patch api.PartialTransaction) (api.Transaction, error) {
	var merged api.Transaction
	err := p.ledger.update(p.name, func(rows []record) ([]record, error) {
		i := ref.Row - 1
		if i < 0 || i >= len(rows) {
			return nil, fmt.Errorf("row %d of %q does not exist", ref.Row, p.name)
		}
		merged = patch.Apply(p.decode(rows[i]))
		rows[i] = p.encode(merged)
		return rows, nil
	})
	if err != nil {
		return api.Transaction{}, api.WrapStore(api.OpEdit, err)
	}
	return merged, nil
}

func (p *partition) encode(tx api.Transaction) record {
	amount := tx.Amount
	return record{
		ID:          tx.ID,
		Date:        tx.Date,
		Description: tx.Description,
		Amount:      &amount,
		Flow:        string(tx.Flow),
		Category:    p.ledger.locale.CategoryLabel(tx.Category),
	}
}

func (p *partition) decode(r record) api.Transaction {
	tx := api.Transaction{
		ID:          r.ID,
		Date:        r.Date,
		Description: r.Description,
		Flow:        api.Flow(r.Flow),
		Category:    p.ledger.locale.CategoryFromStore(r.Category),
	}
	if r.Amount != nil {
		tx.Amount = *r.Amount
	}
	return tx
}
