// Package ledgertest provides an in-memory ledger for tests. It keeps row
// positions and soft-delete semantics the way the real stores do and
// records every call made against it.
package ledgertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ArionMiles/chatledger/pkg/api"
)

// Memory is an in-memory api.Ledger with a single current partition.
type Memory struct {
	mu sync.Mutex

	// Name is the current partition. An empty Name means it is not provisioned.
	Name string
	// Rows are the partition rows in position order. Blanked rows are zero values.
	Rows []api.Transaction

	// Fail, when set, is consulted before every call; a non-nil error is returned
	// from that call. op is one of "partition", "append", "find", "blank", "merge".
	Fail func(op string, calls int) error

	// Calls lists the operations in the order they happened.
	Calls []string
}

// NewMemory returns a ledger whose current partition is name.
func NewMemory(name string, rows ...api.Transaction) *Memory {
	return &Memory{Name: name, Rows: rows}
}

// Count returns how many times op was called.
func (m *Memory) Count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == op {
			n++
		}
	}
	return n
}

// StoreCalls returns the number of calls of any kind.
func (m *Memory) StoreCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *Memory) record(op string) error {
	m.Calls = append(m.Calls, op)
	if m.Fail == nil {
		return nil
	}
	n := 0
	for _, c := range m.Calls {
		if c == op {
			n++
		}
	}
	return m.Fail(op, n)
}

// Partition implements api.Ledger.
func (m *Memory) Partition(_ context.Context) (api.Partition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("partition"); err != nil {
		return nil, api.WrapStore(api.OpLoad, err)
	}
	if m.Name == "" {
		return nil, api.WrapStore(api.OpLoad, fmt.Errorf("memory: %w", api.ErrPartitionNotFound))
	}
	return &partition{m: m, name: m.Name}, nil
}

type partition struct {
	m    *Memory
	name string
}

func (p *partition) Name() string {
	return p.name
}

func (p *partition) Append(_ context.Context, tx api.Transaction) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()

	if err := p.m.record("append"); err != nil {
		return api.WrapStore(api.OpAdd, err)
	}
	p.m.Rows = append(p.m.Rows, tx)
	return nil
}

func (p *partition) FindByIDs(_ context.Context, ids []string) (map[string]api.RowRef, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()

	if err := p.m.record("find"); err != nil {
		return nil, api.WrapStore(api.OpLoad, err)
	}

	found := make(map[string]api.RowRef, len(ids))
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		for i, row := range p.m.Rows {
			if row.ID != "" && row.ID == id {
				found[id] = api.RowRef{Partition: p.name, Row: i + 1, Record: row}
				break
			}
		}
	}
	return found, nil
}

func (p *partition) Blank(_ context.Context, ref api.RowRef) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()

	if err := p.m.record("blank"); err != nil {
		return api.WrapStore(api.OpDelete, err)
	}
	if ref.Row < 1 || ref.Row > len(p.m.Rows) {
		return api.WrapStore(api.OpDelete, fmt.Errorf("row %d does not exist", ref.Row))
	}
	p.m.Rows[ref.Row-1] = api.Transaction{}
	return nil
}

func (p *partition) Merge(_ context.Context, ref api.RowRef, patch api.PartialTransaction) (api.Transaction, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()

	if err := p.m.record("merge"); err != nil {
		return api.Transaction{}, api.WrapStore(api.OpEdit, err)
	}
	if ref.Row < 1 || ref.Row > len(p.m.Rows) {
		return api.Transaction{}, api.WrapStore(api.OpEdit, fmt.Errorf("row %d does not exist", ref.Row))
	}
	merged := patch.Apply(p.m.Rows[ref.Row-1])
	p.m.Rows[ref.Row-1] = merged
	return merged, nil
}

// SequenceIDs returns an api.IDGenerator handing out ids in order.
func SequenceIDs(ids ...string) api.IDGenerator {
	return &sequence{ids: ids}
}

type sequence struct {
	mu  sync.Mutex
	ids []string
	n   int
}

func (s *sequence) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.ids[s.n%len(s.ids)]
	s.n++
	return id
}
