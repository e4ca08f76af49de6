package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Environment variables consulted by NewFromEnv.
const (
	EnvBackend       = "KNOWGRAPH_EMBEDDING_BACKEND" // ollama, openai, statistical
	EnvAllowFallback = "KNOWGRAPH_ALLOW_FALLBACK"
	EnvOllamaHost    = "OLLAMA_HOST"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
)

// probeTimeout bounds the canary embedding used to validate a candidate.
const probeTimeout = 15 * time.Second

// Candidate is one entry in the ordered backend list: a constructor that
// either yields a working backend or an error. Iteration takes the first
// success; there is no nested fallback inside a candidate.
type Candidate struct {
	Name      string
	Construct func() (Backend, error)
}

// Config holds provider configuration.
type Config struct {
	Candidates    []Candidate
	BatchSize     int
	CacheSize     int
	AllowFallback bool // construct the statistical embedder when all candidates fail
	Logger        *slog.Logger
}

// New builds a Provider by trying each candidate constructor in order. The
// first backend whose construction and canary probe both succeed becomes
// active, and its probe fixes the dimension. When every candidate fails and
// the fallback is enabled, the statistical TF-IDF embedder is used so the
// provider never fails outright; with the fallback disabled New returns
// ErrNoBackend, which is fatal at startup.
func New(cfg Config) (*Provider, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}

	cache, err := lru.New[string, []float32](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	for _, cand := range cfg.Candidates {
		backend, err := cand.Construct()
		if err != nil {
			logger.Info("embedding candidate unavailable", "candidate", cand.Name, "error", err)
			continue
		}

		dim, err := probe(backend)
		if err != nil {
			logger.Info("embedding candidate failed probe", "candidate", cand.Name, "error", err)
			_ = backend.Close()
			continue
		}

		logger.Info("embedding backend selected", "backend", backend.ID(), "dimension", dim)
		return &Provider{
			backend:   backend,
			dim:       dim,
			batchSize: cfg.BatchSize,
			cache:     cache,
			logger:    logger,
		}, nil
	}

	if !cfg.AllowFallback {
		return nil, ErrNoBackend
	}

	backend := NewStatisticalBackend(StatisticalDimension)
	dim, err := probe(backend)
	if err != nil {
		// The statistical backend is deterministic and local; a probe
		// failure here means a programming error, not an environment one.
		return nil, fmt.Errorf("statistical fallback probe: %w", err)
	}

	logger.Warn("all embedding candidates failed, using statistical fallback",
		"backend", backend.ID(), "dimension", dim)
	return &Provider{
		backend:   backend,
		dim:       dim,
		batchSize: cfg.BatchSize,
		cache:     cache,
		logger:    logger,
	}, nil
}

// probe embeds the canary string and returns the backend's dimension.
func probe(b Backend) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	vectors, err := b.Encode(ctx, []string{canaryText})
	if err != nil {
		return 0, err
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return 0, fmt.Errorf("%w: probe returned no vector", ErrBackendFailed)
	}
	return len(vectors[0]), nil
}

// DefaultCandidates returns the standard ordered list: local Ollama first,
// the networked OpenAI API last.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{
			Name: "ollama",
			Construct: func() (Backend, error) {
				return NewOllamaBackend(os.Getenv(EnvOllamaHost), "")
			},
		},
		{
			Name: "openai",
			Construct: func() (Backend, error) {
				return NewOpenAIBackend(os.Getenv(EnvOpenAIAPIKey), "")
			},
		},
	}
}

// NewFromEnv creates a provider based on environment variables.
// Priority:
//  1. KNOWGRAPH_EMBEDDING_BACKEND (ollama, openai, statistical)
//  2. The default candidate order, local before networked
//
// KNOWGRAPH_ALLOW_FALLBACK=false disables the statistical fallback.
func NewFromEnv(logger *slog.Logger) (*Provider, error) {
	cfg := Config{
		Logger:        logger,
		AllowFallback: os.Getenv(EnvAllowFallback) != "false",
	}

	switch strings.ToLower(os.Getenv(EnvBackend)) {
	case "":
		cfg.Candidates = DefaultCandidates()
	case "ollama":
		cfg.Candidates = []Candidate{DefaultCandidates()[0]}
	case "openai":
		cfg.Candidates = []Candidate{DefaultCandidates()[1]}
	case "statistical":
		cfg.Candidates = nil
		cfg.AllowFallback = true
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, os.Getenv(EnvBackend))
	}

	return New(cfg)
}
