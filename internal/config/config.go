package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the manual QA engine.
type Config struct {
	Server    ServerConfig
	OpenAI    OpenAIConfig
	Tavily    TavilyConfig
	Storage   StorageConfig
	Ingest    IngestConfig
	Retrieval RetrievalConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int

	// APIToken, when set, gates the HTTP API behind bearer auth.
	APIToken string
}

type LogConfig struct {
	Level string // "debug" or "info"
}

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // empty means the default OpenAI endpoint
	ChatModel  string
	EmbedModel string

	// Image embeddings are served by a separate CLIP-style model behind an
	// OpenAI-compatible /v1/embeddings endpoint.
	ImageEmbedModel   string
	ImageEmbedBaseURL string
}

type TavilyConfig struct {
	APIKey     string
	MaxResults int
}

type StorageConfig struct {
	DataDir           string
	ManualCollection  string
	CatalogCollection string
}

type IngestConfig struct {
	ChunkSize         int
	ChunkOverlap      int
	MinPageTextLen    int // below this, a page is treated as scanned and OCR'd
	MaxTokensPerBatch int
	OCRLanguage       string
}

type RetrievalConfig struct {
	FetchK           int // candidate pool size for diversity-aware search
	TopK             int // diverse subset selected per keyword
	MaxEntries       int // merged context cap
	MaxContextTokens int // 0 disables the token budget
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4400,
		},
		OpenAI: OpenAIConfig{
			ChatModel:         "gpt-4o-mini",
			EmbedModel:        "text-embedding-3-small",
			ImageEmbedModel:   "clip-vit-base-patch32",
			ImageEmbedBaseURL: "http://localhost:8600",
		},
		Tavily: TavilyConfig{
			MaxResults: 5,
		},
		Storage: StorageConfig{
			DataDir:           defaultDataDir(),
			ManualCollection:  "manual_chunks",
			CatalogCollection: "catalog_images",
		},
		Ingest: IngestConfig{
			ChunkSize:         500,
			ChunkOverlap:      100,
			MinPageTextLen:    50,
			MaxTokensPerBatch: 300000,
			OCRLanguage:       "kor",
		},
		Retrieval: RetrievalConfig{
			FetchK:           20,
			TopK:             8,
			MaxEntries:       10,
			MaxContextTokens: 0,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir + "/manualqa"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return home + "/.local/share/manualqa"
}

// Load reads configuration from a .env file (if present) and the process
// environment. Environment variables always win over .env values, which in
// turn win over defaults. The OpenAI API key is the only required value.
func Load() (Config, error) {
	// Missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()
	return loadFromEnv(os.Getenv)
}

// loadFromEnv builds a Config using the given lookup function. Split out from
// Load so tests can inject an environment without mutating the process one.
func loadFromEnv(getenv func(string) string) (Config, error) {
	cfg := defaults()

	setString(&cfg.OpenAI.APIKey, getenv("OPENAI_API_KEY"))
	setString(&cfg.OpenAI.BaseURL, getenv("OPENAI_BASE_URL"))
	setString(&cfg.OpenAI.ChatModel, getenv("MODEL_NAME"))
	setString(&cfg.OpenAI.EmbedModel, getenv("EMBEDDING_MODEL_NAME"))
	setString(&cfg.OpenAI.ImageEmbedModel, getenv("MANUALQA_IMAGE_EMBED_MODEL"))
	setString(&cfg.OpenAI.ImageEmbedBaseURL, getenv("MANUALQA_IMAGE_EMBED_URL"))

	setString(&cfg.Tavily.APIKey, getenv("TAVILY_API_KEY"))
	setInt(&cfg.Tavily.MaxResults, getenv("MANUALQA_WEB_RESULTS"))

	setString(&cfg.Storage.DataDir, getenv("MANUALQA_DATA_DIR"))
	setString(&cfg.Storage.ManualCollection, getenv("MANUALQA_MANUAL_COLLECTION"))
	setString(&cfg.Storage.CatalogCollection, getenv("MANUALQA_CATALOG_COLLECTION"))

	setInt(&cfg.Server.Port, getenv("MANUALQA_PORT"))
	setString(&cfg.Server.APIToken, getenv("MANUALQA_API_TOKEN"))
	setString(&cfg.Log.Level, getenv("MANUALQA_LOG_LEVEL"))
	setInt(&cfg.Ingest.ChunkSize, getenv("MANUALQA_CHUNK_SIZE"))
	setInt(&cfg.Ingest.ChunkOverlap, getenv("MANUALQA_CHUNK_OVERLAP"))
	setInt(&cfg.Ingest.MaxTokensPerBatch, getenv("MANUALQA_MAX_BATCH_TOKENS"))
	setString(&cfg.Ingest.OCRLanguage, getenv("MANUALQA_OCR_LANG"))
	setInt(&cfg.Retrieval.FetchK, getenv("MANUALQA_FETCH_K"))
	setInt(&cfg.Retrieval.TopK, getenv("MANUALQA_TOP_K"))
	setInt(&cfg.Retrieval.MaxEntries, getenv("MANUALQA_CONTEXT_ENTRIES"))
	setInt(&cfg.Retrieval.MaxContextTokens, getenv("MANUALQA_CONTEXT_TOKENS"))

	if cfg.OpenAI.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: OpenAI API key. Set OPENAI_API_KEY in the environment or a .env file")
	}

	return cfg, nil
}

func setString(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

func setInt(dst *int, val string) {
	if val == "" {
		return
	}
	if n, err := strconv.Atoi(val); err == nil {
		*dst = n
	}
}
