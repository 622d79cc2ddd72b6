package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/chatledger/pkg/handler"
	"github.com/ArionMiles/chatledger/pkg/reply"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "ask", "chat", "setup", "status"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestChatLoop(t *testing.T) {
	in := strings.NewReader("kopi 25rb\n\n   \nhapus TX-AB12C\n")
	var out bytes.Buffer

	var got []string
	process := func(_ context.Context, n int, text string) reply.Reply {
		got = append(got, text)
		return reply.Reply{Text: "ok", Reaction: reply.ReactionAdded}
	}

	require.NoError(t, chatLoop(context.Background(), in, &out, process))
	assert.Equal(t, []string{"kopi 25rb", "hapus TX-AB12C"}, got)
	assert.Equal(t, 2, strings.Count(out.String(), reply.ReactionAdded+" ok"))
}

func TestChatLoop_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := chatLoop(ctx, strings.NewReader("kopi\n"), &bytes.Buffer{}, func(context.Context, int, string) reply.Reply {
		t.Fatal("process must not be called")
		return reply.Reply{}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTerminalReactor(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, terminalReactor{out: &out}.React(context.Background(), handler.Message{}, reply.ReactionProcessing))
	assert.Equal(t, reply.ReactionProcessing+"\n", out.String())
}

func TestSplitJoined(t *testing.T) {
	a, b := errors.New("a"), errors.New("b")
	assert.Equal(t, []error{a, b}, splitJoined(errors.Join(a, b)))
	assert.Equal(t, []error{a}, splitJoined(a))
}
