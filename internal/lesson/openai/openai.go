// Package openai provides a lesson generator backed by the OpenAI API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/hanbyeol/lyrico/internal/lesson"
)

// Generator implements lesson.Generator using the OpenAI chat completions API
// with the JSON object response format.
type Generator struct {
	client         oai.Client
	model          string
	targetLanguage string
}

var _ lesson.Generator = (*Generator)(nil)

// config holds optional configuration for the generator.
type config struct {
	baseURL        string
	organization   string
	timeout        time.Duration
	targetLanguage string
}

// Option is a functional option for Generator.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) {
		c.organization = org
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithTargetLanguage sets the learner's native language for translated
// definitions. The default is "ko".
func WithTargetLanguage(lang string) Option {
	return func(c *config) {
		c.targetLanguage = lang
	}
}

// New constructs a new OpenAI lesson Generator.
func New(apiKey string, model string, opts ...Option) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{targetLanguage: "ko"}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Generator{client: client, model: model, targetLanguage: cfg.targetLanguage}, nil
}

// GenerateLesson implements lesson.Generator.
func (g *Generator) GenerateLesson(ctx context.Context, rawText string) (*lesson.Lesson, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, fmt.Errorf("openai: rawText must not be empty")
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(lesson.SystemPrompt),
			oai.UserMessage(lesson.UserPrompt(rawText, g.targetLanguage)),
		},
		Temperature: param.NewOpt(0.3),
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}

	return lesson.DecodeLesson(resp.Choices[0].Message.Content)
}
