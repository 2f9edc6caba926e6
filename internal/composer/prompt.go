// Package composer builds the chain-of-thought generation request and turns
// the aggregated context into a final answer.
package composer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/llm"
)

const synthesisTimeout = 90 * time.Second

// systemPrompt enforces the structured answer discourse: question analysis,
// related information, the answer broken down by condition, and closing notes.
const systemPrompt = `Elaborate on the topic using a Tree of Thoughts and backtrack when necessary to construct a clear, cohesive Chain of Thought reasoning.
당신은 스마트한 가전 도우미입니다. 체계적으로 답변하세요:
## 질문 분석
[분석 내용]
## 관련 정보
[정보]
## 답변
### 1. [조건 A]
### 2. [조건 B]
## 추가 안내`

// Chatter is the chat surface the synthesizer needs from the LLM client.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

// Request carries everything the generation prompt is built from. Analysis is
// the raw analyzer output, Context the rendered context blob; both may be
// empty (the model is allowed to answer from its own knowledge). ModelCode,
// when non-empty, is injected as a product hint. History holds prior
// conversation turns as role-tagged messages and is never modified.
type Request struct {
	Query     string
	Analysis  string
	Context   string
	ModelCode string
	History   []llm.Message
}

// Synthesizer produces the final answer text from a composed request.
type Synthesizer struct {
	client Chatter
}

// New creates a Synthesizer over the given chat client.
func New(client Chatter) *Synthesizer {
	return &Synthesizer{client: client}
}

// Synthesize runs one generation call, temperature 0.3, no retries. A failure
// here is the only user-visible error in the pipeline and is returned as-is
// for the caller to surface.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	messages := make([]llm.Message, 0, len(req.History)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, req.History...)
	messages = append(messages, llm.Message{Role: "user", Content: humanTurn(req)})

	answer, err := s.client.Chat(ctx, messages, llm.Options{Temperature: 0.3})
	if err != nil {
		return "", fmt.Errorf("answer generation: %w", err)
	}
	return answer, nil
}

// humanTurn renders the user message: query, analysis and context, with the
// resolved model code ahead of them when a product was identified.
func humanTurn(req Request) string {
	var b strings.Builder
	if req.ModelCode != "" {
		fmt.Fprintf(&b, "제품 모델 코드: %s\n", req.ModelCode)
	}
	fmt.Fprintf(&b, "질문: %s\n", req.Query)
	fmt.Fprintf(&b, "분석: %s\n", req.Analysis)
	fmt.Fprintf(&b, "컨텍스트: %s", req.Context)
	return b.String()
}
