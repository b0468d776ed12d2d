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
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/khabar"
	"github.com/poiesic/khabar/api"
	"github.com/poiesic/khabar/config"
	"github.com/poiesic/khabar/notify"
	"github.com/poiesic/khabar/search"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "khabar",
		Usage: "Poll a news feed, search it and group it into topics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"KHABAR_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "feed-url",
				Usage: "RSS or Atom feed to poll (overrides the configuration file)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Poll the feed in the background and serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides the configuration file)",
					},
					&cli.DurationFlag{
						Name:  "shutdown-timeout",
						Usage: "How long to wait for in-flight requests on shutdown",
						Value: 5 * time.Second,
					},
				},
			},
			{
				Name:   "poll",
				Usage:  "Fetch the feed once and print the new items",
				Action: pollCommand,
			},
			{
				Name:      "search",
				Usage:     "Fetch the feed once and rank its items against a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum combined score",
						Value: 0.5,
					},
					&cli.IntFlag{
						Name:    "max-results",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
					&cli.Float64Flag{
						Name:  "title-weight",
						Usage: "Weight of title matches (requires --summary-weight)",
					},
					&cli.Float64Flag{
						Name:  "summary-weight",
						Usage: "Weight of summary matches (requires --title-weight)",
					},
				},
			},
			{
				Name:   "topics",
				Usage:  "Fetch the feed once, cluster it and print the topics",
				Action: topicsCommand,
			},
		},
	}
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}

	desk, err := newDesk(cfg)
	if err != nil {
		return err
	}
	defer desk.Close()

	handler, err := api.NewHandler(desk,
		api.WithSemanticDefaults(cfg.Search.DefaultMinThreshold, cfg.Search.DefaultMaxResults),
	)
	if err != nil {
		return err
	}
	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := desk.Start(ctx); err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving", "addr", cfg.Server.Addr, "feed", cfg.Feed.URL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	slog.Info("shutting down")
	desk.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.Duration("shutdown-timeout"))
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func pollCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	desk, err := newDesk(cfg)
	if err != nil {
		return err
	}
	defer desk.Close()

	result, err := desk.PollOnce(c.Context)
	if err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}

	out := c.App.Writer
	if result.NotModified {
		fmt.Fprintln(out, "Feed not modified")
		return nil
	}
	fmt.Fprintf(out, "Fetched %d new items\n", len(result.Items))
	for _, item := range result.Items {
		fmt.Fprintf(out, "[%s] %s\n", item.Published.Format("2006-01-02 15:04"), item.Title)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("search query is required")
	}
	if c.IsSet("title-weight") != c.IsSet("summary-weight") {
		return fmt.Errorf("title-weight and summary-weight must be given together")
	}

	req := search.Request{
		Query:        query,
		MinThreshold: c.Float64("threshold"),
		MaxResults:   c.Int("max-results"),
	}
	if c.IsSet("title-weight") {
		tw, sw := c.Float64("title-weight"), c.Float64("summary-weight")
		req.TitleWeight, req.SummaryWeight = &tw, &sw
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	desk, err := newDesk(cfg)
	if err != nil {
		return err
	}
	defer desk.Close()

	if _, err := desk.PollOnce(c.Context); err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}

	results, err := desk.SemanticSearch(c.Context, req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Fprintf(out, "%d: '%s' [%0.3f] %s\n", i, hit.Item.Title, hit.Score, hit.Confidence.Label())
	}
	return nil
}

func topicsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	desk, err := newDesk(cfg)
	if err != nil {
		return err
	}
	defer desk.Close()

	if _, err := desk.PollOnce(c.Context); err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}

	titles := make(map[string]string)
	for _, item := range desk.ListAll() {
		titles[item.ID] = item.Title
	}

	topics := desk.TopicsWithKeywords()
	out := c.App.Writer
	if len(topics) == 0 {
		fmt.Fprintf(out, "No topics yet (%d items stored, %d needed to cluster)\n",
			len(titles), desk.FeedStatus().Clustering.Threshold)
		return nil
	}

	ids := make([]int, 0, len(topics))
	for id := range topics {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		summary := topics[id]
		words := make([]string, len(summary.Keywords))
		for i, kw := range summary.Keywords {
			words[i] = kw.Word
		}
		label := fmt.Sprintf("Topic %d", id)
		if id < 0 {
			label = "Outliers"
		}
		fmt.Fprintf(out, "%s (%d items): %s\n", label, len(summary.ItemIDs), strings.Join(words, ", "))
		for _, itemID := range summary.ItemIDs {
			fmt.Fprintf(out, "  - %s\n", titles[itemID])
		}
	}
	return nil
}

// loadConfig reads the configuration and applies global flag overrides.
// The config file's log level applies unless --log-level was given.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if c.IsSet("feed-url") {
		cfg.Feed.URL = c.String("feed-url")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	} else if err := configureLogger(cfg.LogLevel); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newDesk(cfg config.Config) (*khabar.Desk, error) {
	opts := []khabar.DeskOption{
		khabar.WithAIConfig(cfg.AI()),
		khabar.WithCapacity(cfg.Feed.MaxStoredArticles),
		khabar.WithClusterThreshold(cfg.Clustering.Threshold),
		khabar.WithPollInterval(cfg.Feed.PollInterval),
		khabar.WithRequestTimeout(cfg.Feed.RequestTimeout),
		khabar.WithKeywordMinLength(cfg.Search.MinKeywordLength),
		khabar.WithMaxLatest(cfg.Search.MaxLatest),
		khabar.WithLogger(slog.Default()),
	}

	if cfg.Telegram.Enabled() {
		notifier, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID,
			notify.WithDateFormat(cfg.Telegram.DateFormat),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram notifier: %w", err)
		}
		opts = append(opts, khabar.WithNotifier(notifier))
	}

	desk, err := khabar.NewDesk(cfg.Feed.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create desk: %w", err)
	}
	return desk, nil
}

func setupLogger(c *cli.Context) error {
	return configureLogger(c.String("log-level"))
}

func configureLogger(levelStr string) error {
	// Get log level and normalize to lowercase
	levelStr = strings.ToLower(levelStr)

	// Map string to slog.Level
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
