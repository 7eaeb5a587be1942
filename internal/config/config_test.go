package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RAW_DIR", "EXTRACTED_DIR", "PROCESSED_DIR", "CHUNKED_DIR", "LOG_DIR",
		"INPUT_ENCODING", "OUTPUT_ENCODING",
		"CHUNK_SIZE", "CHUNK_OVERLAP", "MIN_CHUNK",
		"OLLAMA_HOST", "EMBED_MODEL", "EMBED_DIM", "MAX_CONCURRENT",
		"POSTGRES_URL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.RawDir != "data/raw" {
		t.Errorf("expected default raw dir, got %q", cfg.RawDir)
	}
	if cfg.InputEncoding != "auto" || cfg.OutputEncoding != "utf-16le" {
		t.Errorf("unexpected encoding defaults: %q / %q", cfg.InputEncoding, cfg.OutputEncoding)
	}
	if cfg.ChunkSize != 512 || cfg.ChunkOverlap != 80 || cfg.MinChunk != 100 {
		t.Errorf("unexpected chunking defaults: %d/%d/%d", cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunk)
	}
	if cfg.EmbedModel != "phi3-mini" || cfg.EmbedDim != 384 {
		t.Errorf("unexpected embedding defaults: %q dim %d", cfg.EmbedModel, cfg.EmbedDim)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAW_DIR", "/books")
	t.Setenv("CHUNK_SIZE", "256")
	t.Setenv("CHUNK_OVERLAP", "32")
	t.Setenv("EMBED_MODEL", "nomic-embed-text")

	cfg := Load()

	if cfg.RawDir != "/books" {
		t.Errorf("expected raw dir override, got %q", cfg.RawDir)
	}
	if cfg.ChunkSize != 256 || cfg.ChunkOverlap != 32 {
		t.Errorf("expected chunking overrides, got %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.EmbedModel != "nomic-embed-text" {
		t.Errorf("expected model override, got %q", cfg.EmbedModel)
	}
}

func TestLoad_ClampsBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHUNK_SIZE", "-5")
	t.Setenv("EMBED_DIM", "not-a-number")
	t.Setenv("MAX_CONCURRENT", "0")

	cfg := Load()

	if cfg.ChunkSize != 512 {
		t.Errorf("expected negative chunk size to fall back, got %d", cfg.ChunkSize)
	}
	if cfg.EmbedDim != 384 {
		t.Errorf("expected unparseable dim to fall back, got %d", cfg.EmbedDim)
	}
	if cfg.MaxConcurrent != 3 {
		t.Errorf("expected zero concurrency to fall back, got %d", cfg.MaxConcurrent)
	}
}

func TestValidate_Rejections(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	cfg.InputEncoding = "latin-1"
	if err := cfg.Validate(); err == nil {
		t.Error("expected an unknown input encoding to be rejected")
	}

	cfg = Load()
	cfg.OutputEncoding = "auto"
	if err := cfg.Validate(); err == nil {
		t.Error("output encoding cannot be sniffed, expected a rejection")
	}

	cfg = Load()
	cfg.ChunkOverlap = cfg.ChunkSize
	if err := cfg.Validate(); err == nil {
		t.Error("expected overlap >= size to be rejected")
	}
}
