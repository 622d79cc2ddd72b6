package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/ledger"
	"github.com/ArionMiles/chatledger/pkg/ledger/ledgertest"
	"github.com/ArionMiles/chatledger/pkg/locale"
	"github.com/ArionMiles/chatledger/pkg/reconciler"
	"github.com/ArionMiles/chatledger/pkg/reply"
)

type fakeClassifier struct {
	mu     sync.Mutex
	intent api.Intent
	err    error
	calls  int
	today  time.Time
}

func (f *fakeClassifier) Classify(_ context.Context, _ string, today time.Time) (api.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.today = today
	return f.intent, f.err
}

type recordingReactor struct {
	reactions []string
}

func (r *recordingReactor) React(_ context.Context, _ Message, reaction string) error {
	r.reactions = append(r.reactions, reaction)
	return nil
}

const owner = "6281234567890"

func setup(t *testing.T, c api.Classifier, mem *ledgertest.Memory, reactor Reactor) *Handler {
	t.Helper()
	l, err := locale.Get("id")
	require.NoError(t, err)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	cal := ledger.Calendar{
		Locale:   l,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, 10, 16, 9, 0, 0, 0, time.UTC) },
	}
	return New(Config{
		OwnerNumber: "+62 812-3456-7890",
		Classifier:  c,
		Applier:     reconciler.New(mem, ledgertest.SequenceIDs("TX-AB12C"), quiet),
		Presenter:   reply.Presenter{Locale: l},
		Calendar:    cal,
		Reactor:     reactor,
	}, quiet)
}

func TestAuthorized(t *testing.T) {
	h := setup(t, &fakeClassifier{}, ledgertest.NewMemory("Oktober"), nil)

	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"owner direct", Message{From: owner}, true},
		{"owner jid", Message{From: owner + "@c.us"}, true},
		{"owner in group", Message{From: owner, IsGroup: true}, false},
		{"stranger", Message{From: "6280000000000"}, false},
		{"empty", Message{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, h.Authorized(tc.msg))
		})
	}
}

func TestHandle_DropsUnauthorizedSilently(t *testing.T) {
	c := &fakeClassifier{intent: api.ChatIntent{Message: "hi"}}
	reactor := &recordingReactor{}
	h := setup(t, c, ledgertest.NewMemory("Oktober"), reactor)

	_, handled := h.Handle(context.Background(), Message{From: "6280000000000", Text: "hi"})
	assert.False(t, handled)
	assert.Equal(t, 0, c.calls)
	assert.Empty(t, reactor.reactions)
}

func TestHandle_Add(t *testing.T) {
	c := &fakeClassifier{intent: api.AddIntent{Transactions: []api.Transaction{{
		Date:        "2025-10-16",
		Description: "Beli nasi goreng",
		Amount:      decimal.NewFromInt(15000),
		Flow:        api.FlowSpending,
		Category:    api.CategoryFoodDrink,
	}}}}
	reactor := &recordingReactor{}
	mem := ledgertest.NewMemory("Oktober")
	h := setup(t, c, mem, reactor)

	r, handled := h.Handle(context.Background(), Message{From: owner, Text: "Beli nasi goreng 15rb"})
	require.True(t, handled)
	assert.Equal(t, reply.ReactionAdded, r.Reaction)
	assert.Contains(t, r.Text, "`TX-AB12C`")
	assert.Equal(t, []string{reply.ReactionProcessing}, reactor.reactions)
	assert.Equal(t, "2025-10-16", c.today.Format(api.DateLayout))
	require.Len(t, mem.Rows, 1)
}

func TestHandle_ErrorsBecomeGenericFailure(t *testing.T) {
	l, _ := locale.Get("id")
	generic := l.Texts.GenericFailure

	tests := []struct {
		name string
		c    *fakeClassifier
		mem  *ledgertest.Memory
	}{
		{"classifier", &fakeClassifier{err: fmt.Errorf("%w: bad json", api.ErrClassifier)}, ledgertest.NewMemory("Oktober")},
		{"malformed", &fakeClassifier{intent: api.AddIntent{}}, ledgertest.NewMemory("Oktober")},
		{"partition missing", &fakeClassifier{intent: api.DeleteIntent{IDs: []string{"TX-AAAAA"}}}, ledgertest.NewMemory("")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, handled := setup(t, tc.c, tc.mem, nil).Handle(context.Background(), Message{From: owner, Text: "x"})
			require.True(t, handled)
			assert.Equal(t, generic, r.Text)
			assert.Equal(t, reply.ReactionFailed, r.Reaction)
		})
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{api.WrapStore(api.OpLoad, fmt.Errorf("x: %w", api.ErrPartitionNotFound)), "partition_not_found"},
		{fmt.Errorf("%w: x", api.ErrClassifier), "classifier"},
		{fmt.Errorf("%w: x", api.ErrMalformedIntent), "malformed_intent"},
		{&api.BatchError{Err: api.WrapStore(api.OpAdd, errors.New("x"))}, "batch"},
		{api.WrapStore(api.OpEdit, errors.New("x")), "store"},
		{context.Canceled, "canceled"},
		{errors.New("x"), "unknown"},
	}
	for _, tc := range tests {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%v): got %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestWorker_SerializesMessages(t *testing.T) {
	c := &fakeClassifier{intent: api.ChatIntent{Message: "hello"}}
	h := setup(t, c, ledgertest.NewMemory("Oktober"), nil)
	w := NewWorker(h, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	var wg sync.WaitGroup
	results := make([]Result, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := w.Submit(context.Background(), Message{From: owner, Text: "hi"})
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, r.Handled)
		assert.Equal(t, "hello", r.Reply.Text)
	}
	assert.Equal(t, 5, c.calls)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	_, err := w.Submit(context.Background(), Message{From: owner})
	assert.ErrorIs(t, err, ErrWorkerStopped)
}
