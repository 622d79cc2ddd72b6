package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/chatledger/pkg/handler"
	"github.com/ArionMiles/chatledger/pkg/reply"
)

// terminalReactor prints reactions instead of sending them to a chat.
type terminalReactor struct {
	out io.Writer
}

func (t terminalReactor) React(_ context.Context, _ handler.Message, reaction string) error {
	_, err := fmt.Fprintf(t.out, "%s\n", reaction)
	return err
}

func newAskCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Process one message as the owner and print the reply",
		Example: `  chatledger ask "makan siang 35rb"
  chatledger ask "hapus TX-AB12C"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newTerminalApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			r := a.process(cmd.Context(), 1, strings.Join(args, " "))
			printReply(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func newChatCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Read messages from stdin, one per line, until EOF",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newTerminalApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ledger month: %s. Type a message, Ctrl-D to quit.\n", a.calendar.PartitionName())
			return chatLoop(cmd.Context(), cmd.InOrStdin(), out, a.process)
		},
	}
}

// chatLoop feeds each non-empty input line to process.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, process func(context.Context, int, string) reply.Reply) error {
	scanner := bufio.NewScanner(in)
	n := 0
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := strings.TrimSpace(scanner.Text())
		if text != "" {
			n++
			printReply(out, process(ctx, n, text))
		}
		fmt.Fprint(out, "> ")
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

// process runs text through the pipeline as a direct message from the owner.
func (a *app) process(ctx context.Context, n int, text string) reply.Reply {
	r, _ := a.handler.Handle(ctx, handler.Message{
		ID:   fmt.Sprintf("cli-%d", n),
		From: a.cfg.OwnerNumber,
		Text: text,
	})
	return r
}

func printReply(w io.Writer, r reply.Reply) {
	if r.Reaction != "" {
		fmt.Fprintf(w, "%s ", r.Reaction)
	}
	fmt.Fprintln(w, r.Text)
}

func newTerminalApp(cmd *cobra.Command, opts *options) (*app, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg, terminalReactor{out: cmd.OutOrStdout()}, opts.logger)
}
