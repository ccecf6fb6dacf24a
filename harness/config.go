package harness

import (
	"errors"
	"fmt"

	"github.com/hupe1980/evalharness/advisor"
	"github.com/hupe1980/evalharness/chatclient"
	"github.com/hupe1980/evalharness/evaluation"
	"github.com/hupe1980/evalharness/logging"
)

// Name is the advisor name reported by the evaluation advisor.
const Name = "Evaluation Advisor"

// Defaults applied by NewBuilder.
const (
	DefaultSuccessRating     = evaluation.MaxRating
	DefaultMaxRepeatAttempts = 3
	DefaultOrder             = advisor.LowestPrecedence - 2000
)

// ErrInvalidConfig matches every *ConfigError via errors.Is.
var ErrInvalidConfig = errors.New("harness: invalid configuration")

// ConfigError describes one rejected builder setting.
type ConfigError struct {
	Field   string
	Value   any
	Message string
}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("harness: invalid %s (%v): %s", e.Field, e.Value, e.Message)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// Config is the validated, read-only configuration of an Advisor.
type Config struct {
	successRating     int
	maxRepeatAttempts int
	order             int
	template          evaluation.Template
	skip              SkipPredicate
}

// SuccessRating is the minimum passing rating.
func (c Config) SuccessRating() int { return c.successRating }

// MaxRepeatAttempts bounds the retries after the first attempt.
func (c Config) MaxRepeatAttempts() int { return c.maxRepeatAttempts }

// Order is the advisor's position in the chain.
func (c Config) Order() int { return c.order }

// Template renders the judge prompt.
func (c Config) Template() evaluation.Template { return c.template }

// SkipPredicate decides which responses bypass evaluation.
func (c Config) SkipPredicate() SkipPredicate { return c.skip }

// Builder collects settings for an Advisor. Setters only record values;
// Build validates them all at once.
type Builder struct {
	cfg     Config
	factory chatclient.Factory
	logger  logging.Logger
}

// NewBuilder returns a builder preloaded with the defaults.
func NewBuilder() *Builder {
	return &Builder{
		cfg: Config{
			successRating:     DefaultSuccessRating,
			maxRepeatAttempts: DefaultMaxRepeatAttempts,
			order:             DefaultOrder,
			template:          evaluation.DefaultTemplate,
			skip:              DefaultSkipPredicate,
		},
		logger: logging.NoOpLogger{},
	}
}

// SuccessRating sets the passing threshold (1..4).
func (b *Builder) SuccessRating(r int) *Builder { b.cfg.successRating = r; return b }

// MaxRepeatAttempts sets the number of retries after the first attempt (>= 1).
func (b *Builder) MaxRepeatAttempts(n int) *Builder { b.cfg.maxRepeatAttempts = n; return b }

// Order sets the chain position.
func (b *Builder) Order(o int) *Builder { b.cfg.order = o; return b }

// Template sets the evaluation prompt template.
func (b *Builder) Template(t evaluation.Template) *Builder { b.cfg.template = t; return b }

// SkipPredicate sets the skip predicate.
func (b *Builder) SkipPredicate(p SkipPredicate) *Builder { b.cfg.skip = p; return b }

// JudgeClientFactory sets the factory producing the judge's chat client.
func (b *Builder) JudgeClientFactory(f chatclient.Factory) *Builder { b.factory = f; return b }

// Logger sets the advisor logger.
func (b *Builder) Logger(l logging.Logger) *Builder { b.logger = l; return b }

// Validate reports every invalid setting, joined with errors.Join.
func (b *Builder) Validate() error {
	var errs []error
	c := b.cfg
	if c.successRating < evaluation.MinRating || c.successRating > evaluation.MaxRating {
		errs = append(errs, &ConfigError{
			Field:   "successRating",
			Value:   c.successRating,
			Message: fmt.Sprintf("must be between %d and %d", evaluation.MinRating, evaluation.MaxRating),
		})
	}
	if c.maxRepeatAttempts < 1 {
		errs = append(errs, &ConfigError{Field: "maxRepeatAttempts", Value: c.maxRepeatAttempts, Message: "must be at least 1"})
	}
	if c.order <= advisor.HighestPrecedence || c.order >= advisor.LowestPrecedence {
		errs = append(errs, &ConfigError{
			Field:   "order",
			Value:   c.order,
			Message: "must lie strictly between HighestPrecedence and LowestPrecedence",
		})
	}
	if c.template == nil {
		errs = append(errs, &ConfigError{Field: "template", Message: "must not be nil"})
	}
	if c.skip == nil {
		errs = append(errs, &ConfigError{Field: "skipPredicate", Message: "must not be nil"})
	}
	if b.factory == nil {
		errs = append(errs, &ConfigError{Field: "judgeClientFactory", Message: "must not be nil"})
	}
	return errors.Join(errs...)
}

// Build validates the settings, builds the judge client once and returns the
// advisor. Later changes to b do not affect the returned advisor.
func (b *Builder) Build() (*Advisor, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	client, err := b.factory.Build()
	if err != nil {
		return nil, fmt.Errorf("harness: build judge client: %w", err)
	}

	logger := logging.OrNoOp(b.logger)
	judge := evaluation.NewLLMJudge(client, func(o *evaluation.JudgeOptions) {
		o.Template = b.cfg.template
		o.Logger = logger
	})
	return newAdvisor(b.cfg, judge, logger), nil
}
