package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type askOptions struct {
	system            string
	maxRepeatAttempts int
	successRating     int
	chaos             bool
	chaosProbability  float64
	timeout           time.Duration
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send a prompt through the evaluation harness",
		Long: `Send a prompt through the evaluation harness and print the final answer.
Without arguments the prompt is read from stdin.`,
		Example: `  evalharness ask "List three prime numbers greater than 100"
  evalharness ask --chaos --chaos-probability 0.8 -c evalharness.yaml "Explain TCP slow start"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			applyAskFlags(cmd, root, opts)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			app, err := newApp(ctx, root.cfg, root.logger)
			if err != nil {
				return err
			}
			answer, err := ask(ctx, app, prompt, opts.timeout)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), answer)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.system, "system", "", "system text for the primary model")
	flags.IntVar(&opts.maxRepeatAttempts, "max-attempts", 0, "retries after the first attempt")
	flags.IntVar(&opts.successRating, "success-rating", 0, "minimum passing rating (1-4)")
	flags.BoolVar(&opts.chaos, "chaos", false, "corrupt primary answers at random to exercise retries")
	flags.Float64Var(&opts.chaosProbability, "chaos-probability", 0, "probability of corrupting an answer")
	flags.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall timeout, 0 disables")
	return cmd
}

// applyAskFlags overlays explicitly set flags on the loaded configuration.
func applyAskFlags(cmd *cobra.Command, root *rootOptions, opts *askOptions) {
	cfg := root.cfg
	flags := cmd.Flags()
	if flags.Changed("system") {
		cfg.Primary.System = opts.system
	}
	if flags.Changed("max-attempts") {
		cfg.Harness.MaxRepeatAttempts = &opts.maxRepeatAttempts
	}
	if flags.Changed("success-rating") {
		cfg.Harness.SuccessRating = &opts.successRating
	}
	if flags.Changed("chaos") {
		cfg.Chaos.Enabled = opts.chaos
	}
	if flags.Changed("chaos-probability") {
		cfg.Chaos.Probability = opts.chaosProbability
	}
}

func readPrompt(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("prompt is empty")
	}
	return prompt, nil
}
