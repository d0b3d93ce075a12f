// Command splgen turns natural-language requests into validated SPL
// queries. It handles a single request from the command line or a batch
// of newline-separated requests on stdin.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sentinelworks/splgen/infrastructure/llm"
	"github.com/sentinelworks/splgen/infrastructure/middleware"
	"github.com/sentinelworks/splgen/infrastructure/store"
	"github.com/sentinelworks/splgen/internal/application"
	"github.com/sentinelworks/splgen/internal/logging"
	"github.com/sentinelworks/splgen/internal/ports"
	"github.com/sentinelworks/splgen/internal/prompt"
	"github.com/sentinelworks/splgen/internal/ratelimit"
	"github.com/sentinelworks/splgen/internal/spl"
)

const batchConcurrency = 4

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file")
		identity   = flag.String("identity", "cli", "Caller identity for rate limiting and records")
		channel    = flag.String("channel", "cli", "Channel identifier attached to records")
		request    = flag.String("request", "", "Natural-language request to convert")
		batch      = flag.Bool("batch", false, "Read newline-separated requests from stdin")
		stats      = flag.Bool("stats", false, "Print request statistics for the identity and exit")
		suggest    = flag.String("suggest", "", "Print optimization suggestions for an existing query and exit")
	)
	flag.Parse()

	config, err := application.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(config.Logging.Level, config.Logging.Development)
	if err != nil {
		log.Fatalf("initialize logger: %v", err)
	}
	defer logger.Sync()

	pipeline, err := buildPipeline(config, logger)
	if err != nil {
		logger.Fatal("assemble pipeline", zap.Error(err))
	}

	ctx := context.Background()

	switch {
	case *stats:
		runStats(ctx, pipeline, *identity)
	case *suggest != "":
		for _, s := range pipeline.SuggestOptimizations(*suggest) {
			fmt.Println("-", s)
		}
	case *batch:
		if err := runBatch(ctx, pipeline, *identity, *channel, os.Stdin, os.Stdout); err != nil {
			logger.Fatal("batch run failed", zap.Error(err))
		}
	case *request != "":
		runSingle(ctx, pipeline, *identity, *channel, *request)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func buildPipeline(config application.Config, logger *zap.Logger) (*application.Pipeline, error) {
	limiter, err := ratelimit.NewSlidingWindow(config.RateLimit)
	if err != nil {
		return nil, err
	}
	builder, err := prompt.NewBuilder(config.Prompt)
	if err != nil {
		return nil, err
	}

	rules := spl.DefaultRuleSet()
	if config.RulesPath != "" {
		rules, err = spl.LoadRuleSet(config.RulesPath)
		if err != nil {
			return nil, err
		}
	}

	metrics := middleware.NewPrometheusMetrics()

	client, err := llm.NewClient(config.Provider.Name, llm.ClientConfig{
		APIKey:  config.Provider.APIKey(),
		Model:   config.Provider.Model,
		BaseURL: config.Provider.BaseURL,
		Middleware: []llm.Middleware{
			llm.TracingMiddleware("splgen"),
			llm.MetricsMiddleware(config.Provider.Name, metrics),
			llm.TimeoutMiddleware(config.Provider.Timeout),
			llm.RetryMiddleware(2, 500*time.Millisecond, 5*time.Second),
			llm.CircuitBreakerMiddleware(5, 30*time.Second),
			llm.RateLimitMiddleware(2, 1),
		},
	})
	if err != nil {
		return nil, err
	}

	var recordStore ports.RecordStore = store.NewMemoryStore()
	if config.StorePath != "" {
		recordStore, err = store.NewSQLiteStore(config.StorePath)
		if err != nil {
			return nil, err
		}
	}

	return application.NewPipeline(config, application.Dependencies{
		Limiter:   limiter,
		Builder:   builder,
		Client:    client,
		Validator: spl.NewValidator(rules),
		Store:     recordStore,
		Metrics:   metrics,
		Logger:    logger,
		Classify:  llm.Kind,
	})
}

func runSingle(ctx context.Context, pipeline *application.Pipeline, identity, channel, request string) {
	result, err := pipeline.Handle(ctx, identity, channel, request)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	printJSON(os.Stdout, result)
}

// runBatch converts each input line concurrently, writing one JSON
// object per request. Output is serialized so concurrent results never
// interleave; a failed line is reported on stderr without stopping the
// rest of the batch.
func runBatch(ctx context.Context, pipeline *application.Pipeline, identity, channel string, in io.Reader, out io.Writer) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	var outMu sync.Mutex

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		g.Go(func() error {
			result, err := pipeline.Handle(ctx, identity, channel, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%q: %v\n", line, err)
				return nil
			}
			outMu.Lock()
			defer outMu.Unlock()
			printJSON(out, result)
			return nil
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return g.Wait()
}

func runStats(ctx context.Context, pipeline *application.Pipeline, identity string) {
	stats, err := pipeline.Stats(ctx, identity)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("identity:     %s\n", identity)
	fmt.Printf("total:        %d\n", stats.Total)
	fmt.Printf("successful:   %d\n", stats.Successful)
	fmt.Printf("success rate: %.1f%%\n", stats.SuccessRate*100)
	fmt.Printf("last 7 days:  %d\n", stats.RecentCount)
}

func printJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Fprintln(w, string(data))
}
