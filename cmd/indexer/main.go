package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"textbook-rag/internal/chunker"
	"textbook-rag/internal/config"
	"textbook-rag/internal/database"
	"textbook-rag/internal/embedding"
	"textbook-rag/internal/extractor"
	"textbook-rag/internal/logging"
	"textbook-rag/internal/models"
	"textbook-rag/internal/processor"
)

var version = "0.1.0"

func main() {
	_ = godotenv.Load(".env")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:   "indexer",
		Short: "Textbook indexing and search pipeline",
		Long: `indexer turns PDF textbooks into a searchable knowledge base.

It runs as a pipeline of stages, each writing files the next one reads:
  extract    PDF -> page-delimited text
  structure  text -> chapter/section/content tree (JSON)
  chunk      tree -> retrieval chunks (JSONL)
  embed      chunks -> vectors stored in Postgres
  search     query the stored chunks

Stage directories and tunables come from the environment (a .env file is
read if present); flags override per invocation.`,
		Version: version,
	}

	rootCmd.AddCommand(extractCmd(cfg))
	rootCmd.AddCommand(structureCmd(cfg))
	rootCmd.AddCommand(chunkCmd(cfg))
	rootCmd.AddCommand(embedCmd(cfg))
	rootCmd.AddCommand(searchCmd(cfg))
	rootCmd.AddCommand(runCmd(cfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func stageLogger(cfg *config.Config, stage string) *slog.Logger {
	return logging.New(stage, cfg.LogDir, logging.ParseLevel(cfg.LogLevel))
}

func extractCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [pdf...]",
		Short: "Extract page-delimited text from PDF textbooks",
		Long: `Extract plain text from PDF textbooks, one output file per PDF.

Without arguments every .pdf in the input directory is extracted.

Example:
  indexer extract
  indexer extract --in books/ --out data/extracted
  indexer extract books/biology.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			encoding, _ := cmd.Flags().GetString("encoding")
			return runExtract(cfg, in, out, encoding, args)
		},
	}
	cmd.Flags().String("in", cfg.RawDir, "Directory of PDF textbooks")
	cmd.Flags().String("out", cfg.ExtractedDir, "Output directory for extracted text")
	cmd.Flags().String("encoding", cfg.OutputEncoding, "Encoding for extracted text files")
	return cmd
}

func runExtract(cfg *config.Config, in, out, encoding string, args []string) error {
	log := stageLogger(cfg, "extract")
	ex := extractor.New(log, encoding)

	if len(args) > 0 {
		for _, pdfPath := range args {
			if _, err := ex.ExtractFile(pdfPath, out); err != nil {
				log.Error("failed to extract textbook", "pdf", pdfPath, "error", err)
			}
		}
		return nil
	}
	return ex.ExtractDir(in, out)
}

func structureCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "structure [txt...]",
		Short: "Build structure trees from extracted text",
		Long: `Build a chapter/section/content tree for each extracted textbook and
write it as <title>_structure.json.

Without arguments every .txt in the input directory is processed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			encoding, _ := cmd.Flags().GetString("encoding")
			return runStructure(cfg, in, out, encoding, args)
		},
	}
	cmd.Flags().String("in", cfg.ExtractedDir, "Directory of extracted text files")
	cmd.Flags().String("out", cfg.ProcessedDir, "Output directory for structure files")
	cmd.Flags().String("encoding", cfg.InputEncoding, "Encoding of extracted text files")
	return cmd
}

func runStructure(cfg *config.Config, in, out, encoding string, args []string) error {
	log := stageLogger(cfg, "structure")
	proc := processor.NewProcessor(log, encoding)

	paths := args
	if len(paths) == 0 {
		var err error
		paths, err = filepath.Glob(filepath.Join(in, "*.txt"))
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", in, err)
		}
	}
	if len(paths) == 0 {
		log.Warn("no textbooks to process", "dir", in)
		return nil
	}

	proc.ProcessTextbooks(paths, out)
	return nil
}

func chunkCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk [structure...]",
		Short: "Split structure trees into retrieval chunks",
		Long: `Split the content of each structure tree into chunks sized for
embedding and write them as <title>_chunks.jsonl.

Without arguments every *_structure.json in the input directory is
chunked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			size, _ := cmd.Flags().GetInt("size")
			overlap, _ := cmd.Flags().GetInt("overlap")
			min, _ := cmd.Flags().GetInt("min")
			return runChunk(cfg, in, out, size, overlap, min, args)
		},
	}
	cmd.Flags().String("in", cfg.ProcessedDir, "Directory of structure files")
	cmd.Flags().String("out", cfg.ChunkedDir, "Output directory for chunk files")
	cmd.Flags().Int("size", cfg.ChunkSize, "Target chunk size in runes")
	cmd.Flags().Int("overlap", cfg.ChunkOverlap, "Overlap between consecutive chunks in runes")
	cmd.Flags().Int("min", cfg.MinChunk, "Minimum chunk size to keep")
	return cmd
}

func runChunk(cfg *config.Config, in, out string, size, overlap, min int, args []string) error {
	log := stageLogger(cfg, "chunk")
	ck := chunker.New(log, size, overlap, min)

	paths := args
	if len(paths) == 0 {
		var err error
		paths, err = filepath.Glob(filepath.Join(in, "*_structure.json"))
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", in, err)
		}
	}
	if len(paths) == 0 {
		log.Warn("no structure files to chunk", "dir", in)
		return nil
	}

	for _, path := range paths {
		if _, err := ck.ChunkStructure(path, out); err != nil {
			log.Error("failed to chunk structure", "path", path, "error", err)
		}
	}
	return nil
}

func embedCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed [chunks...]",
		Short: "Embed chunks and store them in Postgres",
		Long: `Embed every chunk file through Ollama and store the vectors in
Postgres. Re-embedding a textbook replaces its stored chunks.

Without arguments every *_chunks.jsonl in the input directory is
embedded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			pg, _ := cmd.Flags().GetString("pg")
			host, _ := cmd.Flags().GetString("ollama")
			model, _ := cmd.Flags().GetString("model")
			dim, _ := cmd.Flags().GetInt("dim")
			maxConcurrent, _ := cmd.Flags().GetInt("max-concurrent")
			return runEmbed(cfg, in, pg, host, model, dim, maxConcurrent, args)
		},
	}
	cmd.Flags().String("in", cfg.ChunkedDir, "Directory of chunk files")
	cmd.Flags().String("pg", cfg.PostgresURL, "PostgreSQL connection string")
	cmd.Flags().String("ollama", cfg.OllamaHost, "Ollama host (default uses OLLAMA_HOST env var)")
	cmd.Flags().String("model", cfg.EmbedModel, "Ollama model for embeddings")
	cmd.Flags().Int("dim", cfg.EmbedDim, "Embedding dimension")
	cmd.Flags().Int("max-concurrent", cfg.MaxConcurrent, "Maximum concurrent embedding requests")
	return cmd
}

func runEmbed(cfg *config.Config, in, pg, host, model string, dim, maxConcurrent int, args []string) error {
	log := stageLogger(cfg, "embed")
	ctx := context.Background()

	db, err := database.NewDB(pg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Initialize(ctx, dim); err != nil {
		return err
	}

	embedder, err := embedding.NewOllamaEmbedder(host, model, log)
	if err != nil {
		return err
	}
	embedder.MaxConcurrent = maxConcurrent

	paths := args
	if len(paths) == 0 {
		paths, err = filepath.Glob(filepath.Join(in, "*_chunks.jsonl"))
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", in, err)
		}
	}
	if len(paths) == 0 {
		log.Warn("no chunk files to embed", "dir", in)
		return nil
	}

	for _, path := range paths {
		if err := embedFile(ctx, log, db, embedder, path); err != nil {
			log.Error("failed to embed chunk file", "path", path, "error", err)
		}
	}
	return nil
}

func embedFile(ctx context.Context, log *slog.Logger, db *database.DB,
	embedder *embedding.OllamaEmbedder, path string) error {

	chunks, err := readChunks(path)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		log.Warn("no chunks in file", "path", path)
		return nil
	}
	textbook := chunks[0].Textbook

	log.Info("embedding textbook", "textbook", textbook, "chunks", len(chunks))
	start := time.Now()

	progress := func(done, total int) {
		if done%50 != 0 && done != total {
			return
		}
		elapsed := time.Since(start)
		remaining := elapsed*time.Duration(total)/time.Duration(done) - elapsed
		log.Info("embedding progress", "done", done, "total", total,
			"remaining", remaining.Round(time.Second))
	}

	if err := embedder.EmbedChunks(ctx, chunks, progress); err != nil {
		return err
	}

	removed, err := db.DeleteTextbook(ctx, textbook)
	if err != nil {
		return err
	}
	if removed > 0 {
		log.Info("replaced stored chunks", "textbook", textbook, "removed", removed)
	}

	stored := 0
	for i := range chunks {
		if err := db.StoreChunk(ctx, &chunks[i]); err != nil {
			log.Warn("failed to store chunk", "chunk", chunks[i].ID, "error", err)
			continue
		}
		stored++
	}

	log.Info("stored chunks", "textbook", textbook, "stored", stored,
		"total", len(chunks), "elapsed", time.Since(start).Round(time.Second))
	return nil
}

func readChunks(path string) ([]models.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var chunks []models.Chunk
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var c models.Chunk
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, fmt.Errorf("failed to parse chunk in %s: %w", path, err)
		}
		chunks = append(chunks, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return chunks, nil
}

func searchCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the stored textbook chunks",
		Long: `Embed a query and print the closest passages with their breadcrumbs
and page numbers.

Example:
  indexer search "how does photosynthesis work"
  indexer search --textbook biology "krebs cycle"
  indexer search --list`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, _ := cmd.Flags().GetString("pg")
			host, _ := cmd.Flags().GetString("ollama")
			model, _ := cmd.Flags().GetString("model")
			textbook, _ := cmd.Flags().GetString("textbook")
			limit, _ := cmd.Flags().GetInt("limit")
			list, _ := cmd.Flags().GetBool("list")

			ctx := context.Background()

			db, err := database.NewDB(pg)
			if err != nil {
				return err
			}
			defer db.Close()

			if list {
				textbooks, err := db.ListTextbooks(ctx)
				if err != nil {
					return err
				}
				fmt.Println("Stored textbooks:")
				for _, name := range textbooks {
					fmt.Println("  " + name)
				}
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("provide a query, or use --list to see stored textbooks")
			}
			query := args[0]

			log := stageLogger(cfg, "search")
			embedder, err := embedding.NewOllamaEmbedder(host, model, log)
			if err != nil {
				return err
			}

			queryEmbedding, err := embedder.EmbedText(ctx, query)
			if err != nil {
				return fmt.Errorf("failed to create query embedding: %w", err)
			}

			results, err := db.QuerySimilar(ctx, queryEmbedding, textbook, limit)
			if err != nil {
				return err
			}

			fmt.Print(formatResults(results))
			return nil
		},
	}
	cmd.Flags().String("pg", cfg.PostgresURL, "PostgreSQL connection string")
	cmd.Flags().String("ollama", cfg.OllamaHost, "Ollama host (default uses OLLAMA_HOST env var)")
	cmd.Flags().String("model", cfg.EmbedModel, "Ollama model for embeddings")
	cmd.Flags().String("textbook", "", "Restrict results to one textbook")
	cmd.Flags().Int("limit", 5, "Number of passages to return")
	cmd.Flags().Bool("list", false, "List stored textbooks instead of searching")
	return cmd
}

func formatResults(results []models.SearchResult) string {
	if len(results) == 0 {
		return "No matching passages found.\n"
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. [%.3f] %s (page %s)\n",
			i+1, r.Score, r.Chunk.Breadcrumb, joinPages(r.Chunk.Pages))
		fmt.Fprintf(&sb, "   %s\n\n", snippet(r.Chunk.Content, 200))
	}
	return sb.String()
}

func joinPages(pages []int) string {
	if len(pages) == 0 {
		return "?"
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}

func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func runCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the whole pipeline over the configured directories",
		Long: `Run extract, structure and chunk in order over the configured data
directories. With --embed the chunks are also embedded and stored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			withEmbed, _ := cmd.Flags().GetBool("embed")

			if err := runExtract(cfg, cfg.RawDir, cfg.ExtractedDir, cfg.OutputEncoding, nil); err != nil {
				return err
			}
			if err := runStructure(cfg, cfg.ExtractedDir, cfg.ProcessedDir, cfg.InputEncoding, nil); err != nil {
				return err
			}
			if err := runChunk(cfg, cfg.ProcessedDir, cfg.ChunkedDir,
				cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunk, nil); err != nil {
				return err
			}
			if withEmbed {
				return runEmbed(cfg, cfg.ChunkedDir, cfg.PostgresURL, cfg.OllamaHost,
					cfg.EmbedModel, cfg.EmbedDim, cfg.MaxConcurrent, nil)
			}
			return nil
		},
	}
	cmd.Flags().Bool("embed", false, "Also embed and store chunks after chunking")
	return cmd
}
