package analyzer

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/llm"
)

// mockChatter implements Chatter for testing.
type mockChatter struct {
	response string
	err      error
	gotOpts  llm.Options
}

func (m *mockChatter) Chat(_ context.Context, _ []llm.Message, opts llm.Options) (string, error) {
	m.gotOpts = opts
	return m.response, m.err
}

func TestAnalyze_StructuredOutput(t *testing.T) {
	mock := &mockChatter{
		response: `{"keywords":["세탁기","에러코드","해결"],"main_topic":"세탁기 오류","conditions":["에러코드 표시"],"details":["원인","조치 방법"]}`,
	}
	a := New(mock)

	got, err := a.Analyze(context.Background(), "세탁기 에러코드 해결법")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got.Fallback {
		t.Error("Fallback = true, want structured result")
	}

	want := Analysis{
		Keywords:   []string{"세탁기", "에러코드", "해결"},
		MainTopic:  "세탁기 오류",
		Conditions: []string{"에러코드 표시"},
		Details:    []string{"원인", "조치 방법"},
	}
	if !reflect.DeepEqual(got.Analysis, want) {
		t.Errorf("Analysis = %+v, want %+v", got.Analysis, want)
	}
	if got.Raw != mock.response {
		t.Errorf("Raw should carry the model output for the generation prompt")
	}
	if !mock.gotOpts.JSONMode {
		t.Error("JSONMode not requested")
	}
}

func TestAnalyze_MalformedJSONFallsBack(t *testing.T) {
	mock := &mockChatter{response: `not valid json {{{`}
	a := New(mock)

	got, err := a.Analyze(context.Background(), "세탁기 에러코드 해결법")
	if err != nil {
		t.Fatalf("Analyze() error = %v, want local recovery", err)
	}
	if !got.Fallback {
		t.Fatal("Fallback = false, want fallback result")
	}

	want := []string{"세탁기 에러코드 해결법"}
	if !reflect.DeepEqual(got.Analysis.Keywords, want) {
		t.Errorf("Keywords = %v, want exactly [original query]", got.Analysis.Keywords)
	}
}

func TestAnalyze_EmptyKeywordsFallsBack(t *testing.T) {
	mock := &mockChatter{response: `{"keywords":[],"main_topic":"주제","conditions":[],"details":[]}`}
	a := New(mock)

	got, err := a.Analyze(context.Background(), "건조기 필터 청소 방법")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !got.Fallback {
		t.Fatal("Fallback = false, want fallback when keywords are empty")
	}
	if len(got.Analysis.Keywords) != 1 || got.Analysis.Keywords[0] != "건조기 필터 청소 방법" {
		t.Errorf("Keywords = %v, want [original query]", got.Analysis.Keywords)
	}
}

func TestAnalyze_CodeFencedJSON(t *testing.T) {
	mock := &mockChatter{
		response: "```json\n{\"keywords\":[\"건조기\"],\"main_topic\":\"건조기\",\"conditions\":[],\"details\":[]}\n```",
	}
	a := New(mock)

	got, err := a.Analyze(context.Background(), "건조기 소음")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got.Fallback {
		t.Error("Fallback = true, want fenced JSON parsed")
	}
	if len(got.Analysis.Keywords) != 1 || got.Analysis.Keywords[0] != "건조기" {
		t.Errorf("Keywords = %v", got.Analysis.Keywords)
	}
}

func TestAnalyze_ChatFailureSurfaces(t *testing.T) {
	mock := &mockChatter{err: fmt.Errorf("rate limited")}
	a := New(mock)

	if _, err := a.Analyze(context.Background(), "질문"); err == nil {
		t.Error("Analyze() error = nil, want generation failure to surface")
	}
}
