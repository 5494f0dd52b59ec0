package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"grindhub/pkg/logx"
	"grindhub/pkg/router"
	"grindhub/pkg/session"
)

const (
	exitCommand  = "exit"
	resetCommand = "/reset"
)

type chatOptions struct {
	userID      string
	showContext bool
}

func newChatCmd(root *rootOptions) *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Long:  `Reads one message per line. Type "exit" to quit or "/reset" to clear the conversation context.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.store.Close()
			defer a.printUsage(cmd.ErrOrStderr())

			ctx := cmd.Context()
			if name, err := a.data.FetchUser(ctx, opts.userID); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Hi %s!\n", name)
			}
			return chatLoop(ctx, chatIO{
				in:          cmd.InOrStdin(),
				out:         cmd.OutOrStdout(),
				interactive: term.IsTerminal(int(os.Stdin.Fd())),
			}, a.engine, a.store, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.userID, "user", "u", "", "user id used for study-data lookups (required)")
	cmd.Flags().BoolVar(&opts.showContext, "show-context", false, "print the intent and running context after each reply")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

type chatIO struct {
	in          io.Reader
	out         io.Writer
	interactive bool
}

// turnEngine is the part of router.Engine the chat loop drives.
type turnEngine interface {
	HandleTurn(ctx context.Context, s *session.Session, message string) *router.Turn
	ResetContext(s *session.Session)
}

// chatLoop runs turns until exit, end of input or cancellation.
func chatLoop(ctx context.Context, cio chatIO, engine turnEngine, store session.Store, opts *chatOptions) error {
	scanner := bufio.NewScanner(cio.in)
	for {
		if cio.interactive {
			fmt.Fprint(cio.out, "User: ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case exitCommand:
			return nil
		case resetCommand:
			sess, err := store.Load(ctx, opts.userID)
			if err != nil {
				return err
			}
			engine.ResetContext(sess)
			if err := store.Delete(ctx, opts.userID); err != nil {
				return err
			}
			fmt.Fprintln(cio.out, "Context cleared.")
			continue
		}

		sess, err := store.Load(ctx, opts.userID)
		if err != nil {
			return err
		}
		turn := engine.HandleTurn(ctx, sess, line)
		fmt.Fprintf(cio.out, "Assistant: %s\n", turn.Reply)
		if opts.showContext {
			fmt.Fprintf(cio.out, "[%s] %s\n", turn.Intent, sess.RunningContext)
		}
		if err := store.Save(ctx, sess); err != nil {
			// The next turn starts from whatever context was last stored.
			logx.NewLogger("chat").Warn("Failed to save session for %s: %v", opts.userID, err)
		}
	}
}
