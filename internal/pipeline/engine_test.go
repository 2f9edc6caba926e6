package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/analyzer"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/composer"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/identity"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/retrieval"
)

type fakeResolver struct {
	ident  identity.ProductIdentity
	called bool
}

func (f *fakeResolver) ResolveIdentity(_ context.Context, _ string) identity.ProductIdentity {
	f.called = true
	return f.ident
}

type fakeAnalyzer struct {
	result   analyzer.Result
	err      error
	gotQuery string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, query string) (analyzer.Result, error) {
	f.gotQuery = query
	return f.result, f.err
}

type fakeGatherer struct {
	set         retrieval.ContextSet
	gotQuery    string
	gotKeywords []string
}

func (f *fakeGatherer) Gather(_ context.Context, query string, keywords []string) retrieval.ContextSet {
	f.gotQuery = query
	f.gotKeywords = keywords
	return f.set
}

type fakeSynthesizer struct {
	answer string
	err    error
	gotReq composer.Request
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, req composer.Request) (string, error) {
	f.gotReq = req
	return f.answer, f.err
}

func analyzed(keywords ...string) analyzer.Result {
	return analyzer.Result{
		Analysis: analyzer.Analysis{Keywords: keywords, MainTopic: "세탁기"},
		Raw:      `{"keywords":["` + strings.Join(keywords, `","`) + `"]}`,
	}
}

func TestAnswer_FullFlow(t *testing.T) {
	resolver := &fakeResolver{ident: identity.ProductIdentity{ProductName: "아가사랑_3kg", ModelCode: "WA30DG2120EE"}}
	qa := &fakeAnalyzer{result: analyzed("세탁기", "에러코드")}
	gatherer := &fakeGatherer{set: retrieval.ContextSet{{Content: "4C 에러는 급수 문제", Source: "manual"}}}
	synth := &fakeSynthesizer{answer: "## 질문 분석\n...\n## 추가 안내\n..."}

	e := NewEngine(resolver, qa, gatherer, synth)
	res, err := e.Answer(context.Background(), "세탁기 에러코드 해결법", "/photos/washer.png", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if !resolver.called {
		t.Error("resolver not invoked despite image path")
	}
	if qa.gotQuery != "WA30DG2120EE 세탁기 에러코드 해결법" {
		t.Errorf("analyzer query = %q, want model code prepended", qa.gotQuery)
	}
	if gatherer.gotQuery != qa.gotQuery {
		t.Errorf("gatherer query = %q, want the retrieval query", gatherer.gotQuery)
	}
	if len(gatherer.gotKeywords) != 2 {
		t.Errorf("keywords = %v", gatherer.gotKeywords)
	}
	if synth.gotReq.ModelCode != "WA30DG2120EE" {
		t.Errorf("synthesizer ModelCode = %q", synth.gotReq.ModelCode)
	}
	if synth.gotReq.Query != "세탁기 에러코드 해결법" {
		t.Errorf("synthesizer Query = %q, want the original question", synth.gotReq.Query)
	}
	if res.Answer == "" || res.Identity.ModelCode != "WA30DG2120EE" {
		t.Errorf("result = %+v", res)
	}
}

func TestAnswer_NoImageSkipsResolution(t *testing.T) {
	resolver := &fakeResolver{ident: identity.ProductIdentity{ProductName: "이름", ModelCode: "W1"}}
	qa := &fakeAnalyzer{result: analyzed("건조기")}
	synth := &fakeSynthesizer{answer: "답변"}

	e := NewEngine(resolver, qa, &fakeGatherer{}, synth)
	if _, err := e.Answer(context.Background(), "건조기 필터 청소 방법", "", nil); err != nil {
		t.Fatal(err)
	}

	if resolver.called {
		t.Error("resolver invoked without an image path")
	}
	if qa.gotQuery != "건조기 필터 청소 방법" {
		t.Errorf("analyzer query = %q, want the raw question", qa.gotQuery)
	}
	if synth.gotReq.ModelCode != "" {
		t.Errorf("ModelCode = %q, want empty without resolution", synth.gotReq.ModelCode)
	}
}

func TestAnswer_UnknownIdentityLeavesQueryAlone(t *testing.T) {
	resolver := &fakeResolver{ident: identity.ProductIdentity{
		ProductName: identity.UnknownProductName,
		ModelCode:   identity.UnknownModelCode,
	}}
	qa := &fakeAnalyzer{result: analyzed("질문")}
	synth := &fakeSynthesizer{answer: "답변"}

	e := NewEngine(resolver, qa, &fakeGatherer{}, synth)
	if _, err := e.Answer(context.Background(), "세탁기 소음", "/photos/blurry.png", nil); err != nil {
		t.Fatal(err)
	}

	if qa.gotQuery != "세탁기 소음" {
		t.Errorf("analyzer query = %q, unknown identity must not alter it", qa.gotQuery)
	}
	if synth.gotReq.ModelCode != "" {
		t.Errorf("ModelCode = %q, want empty for unknown identity", synth.gotReq.ModelCode)
	}
}

func TestAnswer_AnalysisFailureFallsBackToRawQuery(t *testing.T) {
	qa := &fakeAnalyzer{err: fmt.Errorf("api down")}
	gatherer := &fakeGatherer{}
	synth := &fakeSynthesizer{answer: "답변"}

	e := NewEngine(nil, qa, gatherer, synth)
	if _, err := e.Answer(context.Background(), "세탁기 에러코드 해결법", "", nil); err != nil {
		t.Fatalf("Answer() error = %v, want analysis failure absorbed", err)
	}

	if len(gatherer.gotKeywords) != 1 || gatherer.gotKeywords[0] != "세탁기 에러코드 해결법" {
		t.Errorf("keywords = %v, want fallback to [raw query]", gatherer.gotKeywords)
	}
}

func TestAnswer_EmptyContextStillGenerates(t *testing.T) {
	qa := &fakeAnalyzer{result: analyzed("신제품")}
	synth := &fakeSynthesizer{answer: "모델 지식 기반 답변"}

	e := NewEngine(nil, qa, &fakeGatherer{set: nil}, synth)
	res, err := e.Answer(context.Background(), "신제품 추천", "", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v, want best-effort answer", err)
	}
	if res.Answer == "" {
		t.Error("empty answer on empty context")
	}
	if synth.gotReq.Context != "" {
		t.Errorf("Context = %q, want empty blob", synth.gotReq.Context)
	}
}

func TestAnswer_GenerationFailureSurfaces(t *testing.T) {
	qa := &fakeAnalyzer{result: analyzed("질문")}
	synth := &fakeSynthesizer{err: fmt.Errorf("model overloaded")}

	e := NewEngine(nil, qa, &fakeGatherer{}, synth)
	if _, err := e.Answer(context.Background(), "질문", "", nil); err == nil {
		t.Error("Answer() error = nil, want generation failure to surface")
	}
}

func TestAnswer_HistoryForwarded(t *testing.T) {
	qa := &fakeAnalyzer{result: analyzed("질문")}
	synth := &fakeSynthesizer{answer: "답변"}

	e := NewEngine(nil, qa, &fakeGatherer{}, synth)
	history := []ConversationTurn{
		{Role: "user", Content: "안녕하세요"},
		{Role: "assistant", Content: "무엇을 도와드릴까요?"},
	}
	if _, err := e.Answer(context.Background(), "후속 질문", "", history); err != nil {
		t.Fatal(err)
	}

	if len(synth.gotReq.History) != 2 || synth.gotReq.History[1].Role != "assistant" {
		t.Errorf("History = %+v, want both turns forwarded in order", synth.gotReq.History)
	}
}
