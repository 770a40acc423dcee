package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-exito/config"
	"github.com/aluiziolira/go-scrape-exito/models"
	"github.com/aluiziolira/go-scrape-exito/pipeline"
	"github.com/aluiziolira/go-scrape-exito/scraper"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	defaultCfg := config.DefaultConfig()
	pagesDefault := defaultCfg.Pages
	if value, ok, err := config.EnvInt("SCRAPER_PAGES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_PAGES: %v\n", err)
		os.Exit(1)
	} else if ok {
		pagesDefault = value
	}
	categoryDefault := defaultCfg.Category
	if value, ok := config.EnvString("SCRAPER_CATEGORY"); ok {
		categoryDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	categoriesDefault := defaultCfg.CategoriesFile
	if value, ok := config.EnvString("SCRAPER_CATEGORIES_FILE"); ok {
		categoriesDefault = value
	}

	category := flag.String("category", categoryDefault, "Category key to scrape")
	pages := flag.Int("pages", pagesDefault, "Number of pages to scrape, starting at 1")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: jsonl, csv, sqlite, or dual")
	formattedJSON := flag.Bool("formatted-json", defaultCfg.FormattedJSON, "Also rewrite <stem>_formatted.json after every page (jsonl and dual)")
	delayMs := flag.Int("delay", int(defaultCfg.Delay/time.Millisecond), "Pause after every page (milliseconds)")
	randomDelayMs := flag.Int("random-delay", int(defaultCfg.RandomDelay/time.Millisecond), "Random jitter added to the pause (milliseconds)")
	timeoutMs := flag.Int("timeout", int(defaultCfg.Timeout/time.Millisecond), "Per-request timeout (milliseconds)")
	enrichLimit := flag.Int("enrich-limit", defaultCfg.EnrichLimit, "Detail pages fetched per page for ratings")
	categoriesFile := flag.String("categories", categoriesDefault, "YAML category table (defaults to the built-in table)")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Storefront base URL")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.Category = *category
	cfg.Pages = *pages
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.FormattedJSON = *formattedJSON
	cfg.Delay = time.Duration(*delayMs) * time.Millisecond
	cfg.RandomDelay = time.Duration(*randomDelayMs) * time.Millisecond
	cfg.Timeout = time.Duration(*timeoutMs) * time.Millisecond
	cfg.EnrichLimit = *enrichLimit
	cfg.CategoriesFile = *categoriesFile
	cfg.BaseURL = *baseURL
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	categories, err := loadCategories(cfg.CategoriesFile)
	if err != nil {
		slog.Error("loading categories", slog.Any("error", err))
		os.Exit(1)
	}
	if _, err := categories.Lookup(cfg.Category); err != nil {
		slog.Error("invalid configuration",
			slog.Any("error", err),
			slog.String("known", strings.Join(categories.Keys(), ",")),
		)
		os.Exit(1)
	}

	s, err := scraper.NewScraper(cfg, categories)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	repo, err := createRepository(cfg)
	if err != nil {
		slog.Error("creating repository", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting scrape",
		slog.String("category", cfg.Category),
		slog.Int("pages", cfg.Pages),
		slog.String("format", cfg.OutputFormat),
		slog.String("output", cfg.OutputFile),
	)

	orchestrator := pipeline.NewOrchestrator(s, repo, pipeline.WithPageCounter(s.Metrics))
	result, runErr := orchestrator.Run(ctx, cfg.Category, cfg.Pages)

	if err := repo.Close(); err != nil {
		slog.Error("close repository", slog.Any("error", err))
		if runErr == nil {
			runErr = err
		}
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if result != nil {
		printSummary(os.Stdout, result, cfg.OutputFile)
	}
	if runErr != nil {
		slog.Error("scraping failed", slog.Any("error", runErr))
		os.Exit(1)
	}
}

func loadCategories(path string) (*config.Categories, error) {
	if path == "" {
		return config.DefaultCategories()
	}
	return config.LoadCategories(path)
}

func createRepository(cfg *config.Config) (pipeline.Repository, error) {
	var jsonOpts []pipeline.JSONLOption
	if cfg.FormattedJSON {
		jsonOpts = append(jsonOpts, pipeline.WithFormattedSnapshot())
	}

	switch cfg.OutputFormat {
	case "jsonl":
		return pipeline.NewJSONLRepository(cfg.OutputFile, jsonOpts...)
	case "csv":
		return pipeline.NewCSVRepository(cfg.OutputFile)
	case "sqlite":
		return pipeline.NewSQLiteRepository(cfg.OutputFile)
	case "dual":
		return pipeline.NewDualRepository(cfg.OutputFile, jsonOpts...)
	default:
		return nil, fmt.Errorf("unsupported format: %s", cfg.OutputFormat)
	}
}

func printSummary(w io.Writer, result *models.ScrapeResult, outputFile string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Scrape complete")
	t.AppendHeader(table.Row{"Metric", "Value"})

	duration := result.EndTime.Sub(result.StartTime)
	t.AppendRows([]table.Row{
		{"Category", result.Category},
		{"Pages requested", result.PagesRequested},
		{"Pages persisted", result.PagesPersisted},
		{"Empty pages", fmt.Sprint(result.EmptyPages)},
		{"Records", result.TotalCount},
	})
	t.AppendSeparator()
	for _, status := range sortedKeys(result.StatusCounts) {
		t.AppendRow(table.Row{"Status " + string(status), result.StatusCounts[status]})
	}
	for _, tier := range sortedKeys(result.TierCounts) {
		t.AppendRow(table.Row{"Tier " + string(tier), result.TierCounts[tier]})
	}
	t.AppendSeparator()
	recordsPerSec := 0.0
	if duration.Seconds() > 0 {
		recordsPerSec = float64(result.TotalCount) / duration.Seconds()
	}
	t.AppendRows([]table.Row{
		{"Duration", duration.Round(time.Millisecond)},
		{"Records/sec", fmt.Sprintf("%.2f", recordsPerSec)},
		{"Output file", outputFile},
	})

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
