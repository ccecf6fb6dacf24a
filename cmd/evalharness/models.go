package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/evalharness/config"
	"github.com/hupe1980/evalharness/evaluation"
	"github.com/hupe1980/evalharness/model"
	"github.com/hupe1980/evalharness/model/anthropic"
	"github.com/hupe1980/evalharness/model/gemini"
	"github.com/hupe1980/evalharness/model/openai"
)

// newModel creates the model described by mc.
func newModel(ctx context.Context, mc config.ModelConfig) (model.Model, error) {
	switch mc.Provider {
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if mc.Model != "" {
				o.Model = mc.Model
			}
			if mc.Temperature != nil {
				o.Temperature = *mc.Temperature
			}
			if mc.MaxTokens > 0 {
				o.MaxCompletionTokens = mc.MaxTokens
			}
			o.APIKey = mc.APIKey()
			o.BaseURL = mc.BaseURL
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if mc.Model != "" {
				o.Model = sdkanthropic.Model(mc.Model)
			}
			if mc.Temperature != nil {
				o.Temperature = *mc.Temperature
			}
			if mc.MaxTokens > 0 {
				o.MaxTokens = mc.MaxTokens
			}
			o.APIKey = mc.APIKey()
			o.BaseURL = mc.BaseURL
		}), nil
	case config.ProviderGemini:
		return gemini.NewModel(ctx, func(o *gemini.Options) {
			if mc.Model != "" {
				o.Model = mc.Model
			}
			if mc.Temperature != nil {
				o.Temperature = float32(*mc.Temperature)
			}
			if mc.MaxTokens > 0 {
				o.MaxOutputTokens = int32(mc.MaxTokens)
			}
			o.APIKey = mc.APIKey()
		})
	case config.ProviderMock:
		return model.NewMockModel(mockName(mc), config.ProviderMock), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", mc.Provider)
	}
}

func mockName(mc config.ModelConfig) string {
	if mc.Model != "" {
		return mc.Model
	}
	return "mock"
}

// newMockJudge returns an offline judge. It passes answers produced by the
// mock primary model and rates anything else, such as chaos output, as
// partially done.
func newMockJudge(mc config.ModelConfig) *model.MockModel {
	return model.NewMockModel(mockName(mc)+"-judge", config.ProviderMock).Fallback(func(req model.Request) string {
		var prompt string
		if idx := req.LastUserMessageIndex(); idx >= 0 {
			prompt = req.Messages[idx].Content
		}
		if strings.HasPrefix(answerOf(prompt), "Mock response to:") {
			return `{"rating": 4, "evaluation": "The request was answered.", "feedback": ""}`
		}
		return `{"rating": 2, "evaluation": "The answer does not address the question.", "feedback": "Answer the question that was asked."}`
	})
}

// answerOf extracts the answer slot of a rendered default evaluation prompt.
func answerOf(prompt string) string {
	const marker = "\nAnswer: "
	i := strings.LastIndex(prompt, marker)
	if i < 0 {
		return ""
	}
	answer := prompt[i+len(marker):]
	if j := strings.Index(answer, "\n\n"); j >= 0 {
		answer = answer[:j]
	}
	return answer
}

func modelOptions(mc config.ModelConfig) model.Options {
	return model.Options{Temperature: mc.Temperature}
}

func loadTemplate(path string) (evaluation.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("evaluation template: %w", err)
	}
	return evaluation.NewPromptTemplate(string(data))
}
