// Copyright 2025 Ragware Labs
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
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ragware/ragloop"
	"github.com/ragware/ragloop/ai"
	"github.com/ragware/ragloop/ai/openai"
	"github.com/urfave/cli/v2"
)

func main() {
	// Load .env before flag parsing so EnvVars-backed flags see it.
	// A missing file is fine; flags and real env vars still apply.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "ragloop",
		Usage: "Feedback-driven retrieval augmentation engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				EnvVars: []string{"RAGLOOP_DB"},
				Value:   "ragloop.db",
			},
			&cli.StringFlag{
				Name:    "host",
				Usage:   "OpenAI-compatible service host URL",
				EnvVars: []string{"RAGLOOP_HOST"},
				Value:   "http://localhost:11434/v1",
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				EnvVars: []string{"RAGLOOP_EMBEDDING_MODEL"},
				Value:   "nomic-embed-text",
			},
			&cli.StringFlag{
				Name:    "chat-model",
				Usage:   "Chat model name",
				EnvVars: []string{"RAGLOOP_CHAT_MODEL"},
				Value:   "llama3.1:8b",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a question",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-tools",
						Usage: "Answer through the retrieval pipeline only, without the reasoning loop",
					},
					&cli.IntFlag{
						Name:  "max-iterations",
						Usage: "Reasoning loop iteration bound (1-50)",
						Value: 10,
					},
				},
			},
			{
				Name:      "add",
				Usage:     "Add knowledge passages from files, or stdin when no files are given (one passage per line)",
				ArgsUsage: "[file ...]",
				Action:    addCommand,
			},
			{
				Name:      "feedback",
				Usage:     "Record a user score for an answer",
				ArgsUsage: "<question>",
				Action:    feedbackCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "response",
						Usage:    "The answer being rated",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "score",
						Usage:    "Score from 1 (wrong) to 5 (perfect)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "comment",
						Usage: "Optional free-form comment",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show cache and feedback statistics",
				Action: statsCommand,
			},
			{
				Name:   "clear-cache",
				Usage:  "Remove all cached responses",
				Action: clearCacheCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup(c *cli.Context) error {
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

// openEngine builds an engine from the global flags.
func openEngine(c *cli.Context, opts ...ragloop.Option) (*ragloop.Engine, error) {
	config := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
	)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	provider, err := openai.NewProvider(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI provider: %w", err)
	}

	engine, err := ragloop.New(c.String("db"), provider, opts...)
	if err != nil {
		provider.Close()
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	maxIterations := c.Int("max-iterations")
	if maxIterations < 1 || maxIterations > 50 {
		return fmt.Errorf("max-iterations must be between 1 and 50")
	}

	engine, err := openEngine(c, ragloop.WithMaxIterations(maxIterations))
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	var answer string
	if c.Bool("no-tools") {
		answer, err = engine.Retrieve(ctx, question)
	} else {
		answer, err = engine.Answer(ctx, question)
	}
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}

func addCommand(c *cli.Context) error {
	var passages []string
	if c.Args().Len() == 0 {
		lines, err := readPassages(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		passages = lines
	} else {
		for _, path := range c.Args().Slice() {
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			lines, err := readPassages(file)
			file.Close()
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			passages = append(passages, lines...)
		}
	}
	if len(passages) == 0 {
		return fmt.Errorf("no passages to add")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	added, err := engine.AddKnowledge(context.Background(), passages...)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Added %d passages\n", added)
	return nil
}

func feedbackCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	record, err := engine.ProvideFeedback(context.Background(), question,
		c.String("response"), c.Int("score"), c.String("comment"))
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Feedback recorded: %s\n", record.Id)
	return nil
}

func statsCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	cacheStats, err := engine.CacheStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache statistics: %w", err)
	}
	feedbackStats, err := engine.FeedbackStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read feedback statistics: %w", err)
	}

	fmt.Printf("Cache entries:   %d\n", cacheStats.TotalEntries)
	fmt.Printf("Cache usage:     %d (%.2f per entry)\n", cacheStats.TotalUsage, cacheStats.AverageUsage)
	fmt.Printf("Feedback count:  %d\n", feedbackStats.TotalFeedback)
	fmt.Printf("Average score:   %.2f\n", feedbackStats.AverageScore)
	return nil
}

func clearCacheCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.ClearCache(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Cache cleared")
	return nil
}

// readPassages reads non-blank lines as individual passages.
func readPassages(r *os.File) ([]string, error) {
	var passages []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			passages = append(passages, line)
		}
	}
	return passages, scanner.Err()
}
