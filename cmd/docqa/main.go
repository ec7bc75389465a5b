// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/docqa"
	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/reembed"
	"github.com/poiesic/docqa/search"
	"github.com/poiesic/docqa/storage"
	"github.com/urfave/cli/v2"
)

// storageFlags select the backend: an embedded BadgerDB directory or a
// PostgreSQL connection string. Exactly one is required.
var storageFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to BadgerDB database directory",
	},
	&cli.StringFlag{
		Name:    "database-url",
		Usage:   "PostgreSQL connection string (requires the pgvector extension)",
		EnvVars: []string{"DOCQA_DATABASE_URL"},
	},
}

var embeddingFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "embedding-host",
		Usage: "Embedding service host URL",
		Value: "http://localhost:11434/v1",
	},
	&cli.StringFlag{
		Name:  "embedding-model",
		Usage: "Embedding model name",
		Value: "all-minilm",
	},
	&cli.IntFlag{
		Name:  "dimension",
		Usage: "Embedding vector dimension",
		Value: 384,
	},
}

// commonFlags combines the storage and embedding flags with any
// command-specific extras.
func commonFlags(extra ...cli.Flag) []cli.Flag {
	flags := make([]cli.Flag, 0, len(storageFlags)+len(embeddingFlags)+len(extra))
	flags = append(flags, storageFlags...)
	flags = append(flags, embeddingFlags...)
	flags = append(flags, extra...)
	return flags
}

func main() {
	app := &cli.App{
		Name:  "docqa",
		Usage: "Document question-answering backend: ingest, embed, and search documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply PostgreSQL schema migrations",
				Action: migrateCommand,
				Flags:  commonFlags(),
			},
			{
				Name:      "ingest",
				Usage:     "Ingest text files and embed them for search",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
				Flags: commonFlags(
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Maximum time to wait for processing",
						Value: 10 * time.Minute,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Search embedded documents",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: commonFlags(
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   search.DefaultLimit,
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Minimum cosine similarity (negative disables the cutoff)",
						Value: search.DefaultMinSimilarity,
					},
					&cli.BoolFlag{
						Name:  "by-document",
						Usage: "Aggregate results to document level",
					},
				),
			},
			{
				Name:      "status",
				Usage:     "Show a document's embedding status",
				ArgsUsage: "DOCUMENT_ID",
				Action:    statusCommand,
				Flags:     commonFlags(),
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all stored chunks with the configured model",
				Action: reembedCommand,
				Flags: commonFlags(
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// openDatabase builds a Database from the storage and embedding flags.
func openDatabase(c *cli.Context) (*docqa.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithModel(c.String("embedding-model")),
		ai.WithDimension(c.Int("dimension")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	dbPath := c.String("db")
	connString := c.String("database-url")

	switch {
	case dbPath != "" && connString != "":
		return nil, fmt.Errorf("--db and --database-url are mutually exclusive")
	case connString != "":
		return docqa.NewPostgresDatabase(c.Context, connString, docqa.WithAIConfig(aiConfig))
	case dbPath != "":
		return docqa.NewDatabase(dbPath, docqa.WithAIConfig(aiConfig))
	default:
		return nil, fmt.Errorf("either --db or --database-url is required")
	}
}

func migrateCommand(c *cli.Context) error {
	if c.String("database-url") == "" {
		return fmt.Errorf("migrate requires --database-url")
	}

	// Opening the postgres database applies migrations.
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Migrations applied")
	return nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	q, err := db.NewQueue()
	if err != nil {
		return err
	}
	q.Start()
	defer q.Stop()

	ctx := c.Context
	var taskIDs []string

	for _, path := range c.Args().Slice() {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		filename := filepath.Base(path)
		doc := &storage.Document{
			ID:       uuid.NewString(),
			Filename: filename,
			Content:  string(content),
		}
		if err := db.DocumentRepository().AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("failed to store %s: %w", path, err)
		}

		taskID, err := q.Enqueue(doc.ID, filename, false)
		if err != nil {
			return err
		}
		taskIDs = append(taskIDs, taskID)
		fmt.Printf("Queued %s as document %s\n", filename, doc.ID)
	}

	// Wait for every task to reach a terminal state
	deadline := time.Now().Add(c.Duration("timeout"))
	for _, taskID := range taskIDs {
		for {
			task, err := q.Status(taskID)
			if err != nil {
				return err
			}
			if task.Status.Terminal() {
				if task.Status == core.TaskFailed {
					fmt.Printf("Document %s failed: %s\n", task.DocumentID, task.ErrorMessage)
				} else {
					fmt.Printf("Document %s embedded\n", task.DocumentID)
				}
				break
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("timed out waiting for document %s", task.DocumentID)
			}
			time.Sleep(200 * time.Millisecond)
		}
	}

	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one query argument is required")
	}
	query := c.Args().First()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}

	params := search.Params{
		Limit:         c.Int("limit"),
		MinSimilarity: float32(c.Float64("min-similarity")),
	}

	if c.Bool("by-document") {
		matches, err := searcher.SearchDocuments(c.Context, query, params)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Println("No matching documents")
			return nil
		}
		for i, m := range matches {
			fmt.Printf("%2d. %s (score %.3f, %d chunks)\n    %s\n",
				i+1, m.DocumentName, m.Score, m.MatchingChunks, m.Preview)
		}
		return nil
	}

	results, err := searcher.SearchByText(c.Context, query, params)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No matching chunks")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%2d. %s #%d (similarity %.3f)\n    %s\n",
			i+1, r.DocumentName, r.ChunkIndex, r.Similarity, r.Content)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one document ID argument is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	doc, err := db.DocumentRepository().GetDocument(c.Context, c.Args().First())
	if err != nil {
		return err
	}

	fmt.Printf("Document:  %s (%s)\n", doc.ID, doc.Filename)
	fmt.Printf("Status:    %s\n", doc.EmbeddingStatus)
	fmt.Printf("Chunks:    %d\n", doc.TotalChunks)
	if doc.EmbeddingModel != "" {
		fmt.Printf("Model:     %s\n", doc.EmbeddingModel)
	}
	fmt.Printf("Updated:   %s\n", doc.UpdatedAt.Format(time.RFC3339))
	return nil
}

func reembedCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reembedder, err := db.NewReembedder(config, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n\n", c.String("embedding-model"))

	if err := reembedder.Run(c.Context); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	return nil
}
