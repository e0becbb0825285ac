// Package ai implements the AI-backed classifiers of the pipeline on top of a
// chat-completion provider (OpenAI-compatible HTTP or Gemini).
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/config"
)

// ErrEmptyResponse is returned when the model answers with nothing usable
var ErrEmptyResponse = errors.New("empty response from model")

// Provider sends one system+user prompt pair to a model and returns the text
// answer
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewProvider builds the provider named in cfg. It returns nil and no error
// when AI is not configured.
func NewProvider(ctx context.Context, cfg config.AIConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "":
		return nil, nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ai provider openai requires an api key")
		}
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		}), nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

// CleanJSON strips Markdown fences and surrounding prose from a model answer
// so that only the outermost JSON object remains
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
