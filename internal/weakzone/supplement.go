package weakzone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/rebootlabs/mastery/internal/llm"
)

// Purpose tags supplement requests in the LLM request log.
const Purpose = "weakzone-supplement"

// SupplementConfig holds generation settings for supplements.
type SupplementConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultSupplementConfig returns the production settings.
func DefaultSupplementConfig() SupplementConfig {
	return SupplementConfig{
		MaxTokens:   300,
		Temperature: 0.7,
	}
}

// Supplementer asks the LLM for a short explanation of a topic.
type Supplementer struct {
	provider llm.Provider
	cfg      SupplementConfig
}

// NewSupplementer creates a Supplementer.
func NewSupplementer(provider llm.Provider, cfg SupplementConfig) *Supplementer {
	return &Supplementer{provider: provider, cfg: cfg}
}

type supplementOutput struct {
	Summary  string `json:"summary"`
	Example  string `json:"example"`
	Remember string `json:"remember"`
}

// Supplement returns the rendered three-line explanation for topic.
func (s *Supplementer) Supplement(ctx context.Context, topic string) (string, error) {
	ctx = llm.WithPurpose(ctx, Purpose)

	userMsg, err := buildSupplementMessage(topic)
	if err != nil {
		return "", fmt.Errorf("build supplement prompt: %w", err)
	}

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      supplementSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Schema:      SupplementSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate supplement: %w", err)
	}

	var out supplementOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return "", fmt.Errorf("parse supplement response: %w", err)
	}
	return out.render(), nil
}

func (o supplementOutput) render() string {
	return fmt.Sprintf("1. %s\n2. %s\n3. %s",
		strings.TrimSpace(o.Summary),
		strings.TrimSpace(o.Example),
		strings.TrimSpace(o.Remember))
}

const supplementSystemPrompt = `당신은 친절한 교육 보조 AI입니다. 학생이 어려워하는 개념을 쉽게 설명해주세요.`

var supplementUserTemplate = template.Must(template.New("supplement").Parse(`학생이 '{{.}}' 부분에서 어려움을 겪고 있습니다.

다음 형식으로 200자 이내의 보충 설명을 작성하세요:
1. 핵심 개념 한 줄 정리
2. 쉬운 비유 또는 예시 1개
3. "이것만 기억하세요" 한 줄`))

func buildSupplementMessage(topic string) (string, error) {
	var buf bytes.Buffer
	if err := supplementUserTemplate.Execute(&buf, topic); err != nil {
		return "", err
	}
	return buf.String(), nil
}
