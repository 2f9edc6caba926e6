package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeTextClient records inputs and returns a fixed-dimension vector per text.
type fakeTextClient struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeTextClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func TestEmbed_Single(t *testing.T) {
	e := NewEmbedder(&fakeTextClient{})
	vec, err := e.Embed(context.Background(), "세탁기")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("Embed() dim = %d, want 2", len(vec))
	}
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	e := NewEmbedder(&fakeTextClient{})

	var texts []string
	for i := 0; i < 300; i++ {
		texts = append(texts, fmt.Sprintf("%0*d", i%7+1, 0))
	}

	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("EmbedBatch() returned %d vectors, want %d", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if int(v[0]) != len(texts[i]) {
			t.Fatalf("vector %d does not match its input text", i)
		}
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	e := NewEmbedder(&fakeTextClient{})
	vecs, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch(nil) error = %v", err)
	}
	if vecs != nil {
		t.Errorf("EmbedBatch(nil) = %v, want nil", vecs)
	}
}

func TestEmbedBatch_ClientError(t *testing.T) {
	e := NewEmbedder(&fakeTextClient{err: fmt.Errorf("quota exceeded")})
	if _, err := e.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("EmbedBatch() error = nil, want client error")
	}
}

func TestImageEmbedder_EmbedImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %s, want /v1/embeddings", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2,0.3]}]}`)
	}))
	defer srv.Close()

	e := NewImageEmbedder(srv.URL, "clip-vit-base-patch32")
	vec, err := e.EmbedImage(context.Background(), "aW1hZ2U=")
	if err != nil {
		t.Fatalf("EmbedImage() error = %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("EmbedImage() dim = %d, want 3", len(vec))
	}
}

func TestImageEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewImageEmbedder(srv.URL, "clip-vit-base-patch32")
	if _, err := e.EmbedImage(context.Background(), "aW1hZ2U="); err == nil {
		t.Error("EmbedImage() error = nil, want status error")
	}
}
