package main

import (
	"context"

	"github.com/hupe1980/evalharness/advisor"
	"github.com/hupe1980/evalharness/chatclient"
	"github.com/hupe1980/evalharness/config"
	"github.com/hupe1980/evalharness/harness"
	"github.com/hupe1980/evalharness/logging"
	"github.com/hupe1980/evalharness/memory"
)

// Chain positions: memory runs outermost so only the final answer of a turn
// is recorded; the harness wraps the remaining stages so each retry re-runs
// the logging and chaos stages.
const (
	memoryOrder  = advisor.HighestPrecedence + 500
	harnessOrder = advisor.HighestPrecedence + 1000
	loggingOrder = 0
	chaosOrder   = 100
)

type app struct {
	client  *chatclient.Client
	harness *harness.Advisor
	memory  *memory.InMemoryStore
}

func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*app, error) {
	primary, err := newModel(ctx, cfg.Primary)
	if err != nil {
		return nil, err
	}
	primaryBuilder := chatclient.NewBuilder(primary).
		DefaultSystem(cfg.Primary.System).
		DefaultOptions(modelOptions(cfg.Primary)).
		Logger(logger)

	judgeBuilder, err := newJudgeBuilder(ctx, cfg, primaryBuilder, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Logging.Advisors {
		judgeBuilder.DefaultAdvisors(advisor.NewLoggingAdvisor(loggingOrder, "[EVALUATOR]", withLogger(logger)))
	}

	hb := harness.NewBuilder().
		JudgeClientFactory(judgeBuilder).
		Order(harnessOrder).
		Logger(logger)
	if cfg.Harness.SuccessRating != nil {
		hb.SuccessRating(*cfg.Harness.SuccessRating)
	}
	if cfg.Harness.MaxRepeatAttempts != nil {
		hb.MaxRepeatAttempts(*cfg.Harness.MaxRepeatAttempts)
	}
	if cfg.Harness.Order != nil {
		hb.Order(*cfg.Harness.Order)
	}
	if cfg.Harness.TemplateFile != "" {
		tmpl, err := loadTemplate(cfg.Harness.TemplateFile)
		if err != nil {
			return nil, err
		}
		hb.Template(tmpl)
	}
	h, err := hb.Build()
	if err != nil {
		return nil, err
	}

	store := memory.NewInMemoryStore(func(o *memory.InMemoryStoreOptions) { o.MaxMessages = cfg.Memory.MaxMessages })
	primaryBuilder.DefaultAdvisors(
		memory.NewAdvisor(store, memoryOrder, func(o *memory.AdvisorOptions) { o.Logger = logger }),
		h,
	)
	if cfg.Logging.Advisors {
		primaryBuilder.DefaultAdvisors(advisor.NewLoggingAdvisor(loggingOrder, "[MAIN]", withLogger(logger)))
	}
	if cfg.Chaos.Enabled {
		primaryBuilder.DefaultAdvisors(advisor.NewChaosAdvisor(chaosOrder, func(o *advisor.ChaosAdvisorOptions) {
			o.Probability = cfg.Chaos.Probability
			o.Logger = logger
		}))
	}

	client, err := primaryBuilder.Build()
	if err != nil {
		return nil, err
	}
	return &app{client: client, harness: h, memory: store}, nil
}

// newJudgeBuilder returns the builder for the judge client. Without a
// separate judge section the primary builder is cloned before the harness
// is attached to it.
func newJudgeBuilder(ctx context.Context, cfg *config.Config, primary *chatclient.Builder, logger logging.Logger) (*chatclient.Builder, error) {
	mc, separate := cfg.JudgeModel()
	switch {
	case mc.Provider == config.ProviderMock:
		return chatclient.NewBuilder(newMockJudge(mc)).Logger(logger), nil
	case !separate:
		return primary.Clone(), nil
	}

	m, err := newModel(ctx, mc)
	if err != nil {
		return nil, err
	}
	return chatclient.NewBuilder(m).
		DefaultSystem(mc.System).
		DefaultOptions(modelOptions(mc)).
		Logger(logger), nil
}

func withLogger(l logging.Logger) func(o *advisor.LoggingAdvisorOptions) {
	return func(o *advisor.LoggingAdvisorOptions) { o.Logger = l }
}
