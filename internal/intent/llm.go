package intent

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/extract.yaml
var defaultPromptSpec []byte

// PromptSpec is the YAML description of the extraction prompt.
type PromptSpec struct {
	System string `yaml:"system"`
	Slots  []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"slots"`
	Style struct {
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"style"`
}

// LoadPromptSpec reads a prompt spec from path, or the embedded default when
// path is empty.
func LoadPromptSpec(path string) (PromptSpec, error) {
	b := defaultPromptSpec
	if strings.TrimSpace(path) != "" {
		var err error
		b, err = os.ReadFile(path)
		if err != nil {
			return PromptSpec{}, err
		}
	}
	var spec PromptSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return PromptSpec{}, fmt.Errorf("parse prompt spec: %w", err)
	}
	if strings.TrimSpace(spec.System) == "" {
		return PromptSpec{}, errors.New("prompt spec has no system prompt")
	}
	return spec, nil
}

// UpstreamError reports a failure of the language-understanding provider.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return "language provider: " + e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }

// ChatCompleter is the subset of the OpenAI client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMExtractor asks a chat model to fill slots.
type LLMExtractor struct {
	spec    PromptSpec
	client  ChatCompleter
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewLLMExtractor(spec PromptSpec, client ChatCompleter, model string, timeout time.Duration, logger *zap.Logger) *LLMExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LLMExtractor{spec: spec, client: client, model: model, timeout: timeout, logger: logger}
}

func (x *LLMExtractor) systemPrompt() string {
	var b strings.Builder
	b.WriteString(x.spec.System)
	b.WriteString("\n\nSlots:\n")
	for _, s := range x.spec.Slots {
		b.WriteString("- ")
		b.WriteString(s.Name)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(s.Description))
		b.WriteString("\n")
	}
	b.WriteString("\nOutput ONLY the JSON object.\n")
	return b.String()
}

func (x *LLMExtractor) Extract(ctx context.Context, prompt string) (Entities, error) {
	text := strings.TrimSpace(prompt)
	if text == "" {
		return Entities{}, nil
	}
	temp := x.spec.Style.Temperature
	if temp <= 0 {
		temp = 0.1
	}
	maxTok := x.spec.Style.MaxTokens
	if maxTok <= 0 {
		maxTok = 300
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()
	resp, err := x.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       x.model,
		Temperature: temp,
		MaxTokens:   maxTok,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: x.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &UpstreamError{Err: errors.New("no choices")}
	}
	raw := resp.Choices[0].Message.Content
	slots, err := decodeSlots(raw)
	if err != nil {
		x.logger.Warn("unparseable extraction reply", zap.String("reply", raw), zap.Error(err))
		return nil, &UpstreamError{Err: err}
	}
	out := Canonicalize(slots)
	if v, ok := out[SlotPriority]; ok {
		out[SlotPriority] = normalizePriorityWord(v)
	}
	x.logger.Debug("llm extraction", zap.Strings("slots", out.Keys()))
	return out, nil
}

// decodeSlots parses the model reply, tolerating prose around the JSON
// object. Non-string scalars are stringified and nested values dropped.
func decodeSlots(raw string) (map[string]string, error) {
	var generic map[string]any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		first := strings.Index(raw, "{")
		last := strings.LastIndex(raw, "}")
		if first < 0 || last <= first {
			return nil, err
		}
		if err2 := json.Unmarshal([]byte(raw[first:last+1]), &generic); err2 != nil {
			return nil, err
		}
	}
	if nested, ok := generic["slots"].(map[string]any); ok {
		generic = nested
	}
	out := make(map[string]string, len(generic))
	for k, v := range generic {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64, bool:
			out[k] = fmt.Sprint(t)
		}
	}
	return out, nil
}

// Cascade runs extractors in order; the first one to produce a slot keeps
// it. An error from any extractor fails the whole extraction.
type Cascade []Extractor

func (c Cascade) Extract(ctx context.Context, prompt string) (Entities, error) {
	out := Entities{}
	for _, x := range c {
		got, err := x.Extract(ctx, prompt)
		if err != nil {
			return nil, err
		}
		for k, v := range got {
			if !out.Has(k) && strings.TrimSpace(v) != "" {
				out[k] = v
			}
		}
	}
	return out, nil
}
