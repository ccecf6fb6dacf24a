package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/evalharness/chatclient"
	"github.com/hupe1980/evalharness/memory"
	"github.com/spf13/cobra"
)

func newChatCmd(root *rootOptions) *cobra.Command {
	var (
		conversation string
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Hold a multi-turn conversation through the evaluation harness",
		Long: `Read one prompt per line from stdin and answer each through the harness.
Earlier turns are replayed as history. "/reset" clears the history and
"/exit" ends the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			app, err := newApp(ctx, root.cfg, root.logger)
			if err != nil {
				return err
			}
			withConversation := chatclient.WithContextValue(memory.ConversationIDKey, conversation)

			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "/exit":
					return nil
				case "/reset":
					if err := app.memory.Clear(ctx, conversation); err != nil {
						return err
					}
					continue
				}

				answer, err := ask(ctx, app, line, timeout, withConversation)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(out, answer); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&conversation, "conversation", memory.DefaultConversationID, "conversation id")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "timeout per turn, 0 disables")
	return cmd
}

func ask(ctx context.Context, app *app, prompt string, timeout time.Duration, opts ...chatclient.RequestOption) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return app.client.Content(ctx, prompt, opts...)
}
