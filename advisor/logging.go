package advisor

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hupe1980/evalharness/logging"
	"github.com/hupe1980/evalharness/model"
)

// LoggingAdvisor logs the outgoing messages (and available tools) and the
// returned results of every call passing through it.
type LoggingAdvisor struct {
	order  int
	label  string
	logger logging.Logger
}

// LoggingAdvisorOptions configures a LoggingAdvisor.
type LoggingAdvisorOptions struct {
	Logger logging.Logger
}

// NewLoggingAdvisor creates a logging stage at order with a label such as "[MAIN]".
// Without a Logger option it writes through slog.Default().
func NewLoggingAdvisor(order int, label string, optFns ...func(o *LoggingAdvisorOptions)) *LoggingAdvisor {
	opts := LoggingAdvisorOptions{Logger: logging.NewDefaultSlogLogger()}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &LoggingAdvisor{order: order, label: label, logger: logging.OrNoOp(opts.Logger)}
}

// Name implements Advisor.
func (a *LoggingAdvisor) Name() string { return "Logging Advisor " + a.label }

// Order implements Advisor.
func (a *LoggingAdvisor) Order() int { return a.order }

// Before implements BeforeAfter.
func (a *LoggingAdvisor) Before(_ context.Context, req *Request) (*Request, error) {
	lines := make([]string, 0, len(req.Prompt.Messages))
	for _, m := range req.Prompt.Messages {
		if m.Role == model.RoleSystem {
			lines = append(lines, " - SYSTEM")
			continue
		}
		lines = append(lines, " - "+toJSON(m))
	}

	tools := "No Tools"
	if len(req.Prompt.Tools) > 0 {
		names := make([]string, 0, len(req.Prompt.Tools))
		for _, t := range req.Prompt.Tools {
			names = append(names, t.Name)
		}
		tools = toJSON(names)
	}

	a.logger.Info("advisor.request",
		"label", a.label,
		"request_id", req.ID,
		"messages", strings.Join(lines, "\n"),
		"tools", tools,
	)
	return req, nil
}

// After implements BeforeAfter.
func (a *LoggingAdvisor) After(_ context.Context, resp *Response) (*Response, error) {
	var lines []string
	if resp != nil && resp.Model != nil {
		for _, r := range resp.Model.Results {
			lines = append(lines, " - "+toJSON(r.Message))
		}
	}
	a.logger.Info("advisor.response", "label", a.label, "results", strings.Join(lines, "\n"))
	return resp, nil
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return err.Error()
	}
	return string(b)
}
