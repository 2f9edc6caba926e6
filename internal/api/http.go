// Package api exposes the QA engine over HTTP and MCP. Both surfaces are thin
// adapters over the pipeline; conversation bookkeeping stays client-owned.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/pipeline"
)

const maxRequestBodySize = 1 << 20 // 1MB

// AnswerEngine is the pipeline surface the API serves.
type AnswerEngine interface {
	Answer(ctx context.Context, query, imagePath string, history []pipeline.ConversationTurn) (pipeline.Result, error)
}

// askRequest is the JSON body for POST /ask. ImagePath refers to a file
// visible to the server process; history carries the caller's prior turns.
type askRequest struct {
	Query     string                      `json:"query"`
	ImagePath string                      `json:"image_path,omitempty"`
	History   []pipeline.ConversationTurn `json:"history,omitempty"`
}

type askResponse struct {
	Answer      string      `json:"answer"`
	ProductName string      `json:"product_name,omitempty"`
	ModelCode   string      `json:"model_code,omitempty"`
	Sources     []sourceRef `json:"sources,omitempty"`
}

type sourceRef struct {
	Source      string `json:"source"`
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	ChunkIndex  int    `json:"chunk_index,omitempty"`
	TotalChunks int    `json:"total_chunks,omitempty"`
}

// NewHandler returns the HTTP handler for the QA API.
func NewHandler(engine AnswerEngine) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/ask", handleAsk(engine))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleAsk(engine AnswerEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		result, err := engine.Answer(r.Context(), req.Query, req.ImagePath, req.History)
		if err != nil {
			httpError(w, http.StatusBadGateway, "generation_error",
				"answer generation failed, please retry: %v", err)
			return
		}

		resp := askResponse{Answer: result.Answer}
		if !result.Identity.Unknown() {
			resp.ProductName = result.Identity.ProductName
			resp.ModelCode = result.Identity.ModelCode
		}
		for _, e := range result.Context {
			resp.Sources = append(resp.Sources, sourceRef{
				Source:      e.Source,
				Title:       e.Title,
				URL:         e.URL,
				ChunkIndex:  e.ChunkIndex,
				TotalChunks: e.TotalChunks,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
