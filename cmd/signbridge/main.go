// Command signbridge is the main entry point for the SignBridge captioning
// and sign-language gloss server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/signbridge/internal/archive"
	"github.com/MrWong99/signbridge/internal/config"
	"github.com/MrWong99/signbridge/internal/gloss"
	"github.com/MrWong99/signbridge/internal/gloss/llmgloss"
	"github.com/MrWong99/signbridge/internal/gloss/rules"
	"github.com/MrWong99/signbridge/internal/health"
	"github.com/MrWong99/signbridge/internal/observe"
	"github.com/MrWong99/signbridge/internal/resilience"
	"github.com/MrWong99/signbridge/internal/session"
	"github.com/MrWong99/signbridge/internal/signs"
	"github.com/MrWong99/signbridge/internal/stream"
	"github.com/MrWong99/signbridge/internal/web"
	"github.com/MrWong99/signbridge/pkg/provider/llm"
	"github.com/MrWong99/signbridge/pkg/provider/llm/anyllm"
	oaillm "github.com/MrWong99/signbridge/pkg/provider/llm/openai"
	"github.com/MrWong99/signbridge/pkg/provider/stt"
	"github.com/MrWong99/signbridge/pkg/provider/stt/groqwhisper"
)

const defaultListenAddr = ":8080"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "signbridge: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "signbridge: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level lives in a LevelVar so a config reload can adjust it without
	// replacing the handler.
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	slog.Info("signbridge starting",
		"config", *configPath,
		"listen_addr", listenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "signbridge",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers and pipeline pieces ─────────────────────────────
	sttProvider, err := buildSTT(cfg, reg)
	if err != nil {
		slog.Error("failed to build stt provider", "err", err)
		return 1
	}

	normalizer, err := buildNormalizer(cfg, reg)
	if err != nil {
		slog.Error("failed to build gloss normalizer", "err", err)
		return 1
	}

	lookup, err := signs.New()
	if err != nil {
		slog.Error("failed to load sign dictionaries", "err", err)
		return 1
	}

	var checkers []health.Checker

	var archiver archive.Archiver
	if dsn := cfg.Archive.PostgresDSN; dsn != "" {
		pg, err := archive.NewPostgresArchiver(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect to archive database", "err", err)
			return 1
		}
		defer pg.Close()
		archiver = pg
		checkers = append(checkers, health.Checker{Name: "archive", Check: pg.Ping})
		slog.Info("session archive enabled")
	}

	coord, err := stream.NewCoordinator(stream.Config{
		Sessions: session.NewStore(cfg.Session.HistorySize,
			session.WithDefaultLanguage(cfg.Session.DefaultLanguage)),
		Normalizer: normalizer,
		Lookup:     lookup,
		Hub:        stream.NewHub(),
		Metrics:    metrics,
		Archive:    archiver,
		Grace:      cfg.Session.GracePeriod,
		Mode:       string(cfg.Gloss.Mode),
	})
	if err != nil {
		slog.Error("failed to initialise coordinator", "err", err)
		return 1
	}

	server, err := web.NewServer(web.Config{
		Coordinator: coord,
		Gateway:     stream.NewGateway(coord),
		Lookup:      lookup,
		Metrics:     metrics,
		STT:         sttProvider,
		Health:      health.New(checkers...),
	})
	if err != nil {
		slog.Error("failed to initialise http server", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	// Only the log level applies live; anything else logs a restart hint.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level updated", "level", d.NewLogLevel)
		}
		if d.RestartRequired {
			slog.Warn("config change requires a restart to take effect")
		}
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, listenAddr)

	httpSrv := &http.Server{
		Addr:              listenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down")
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the provider factories that ship with
// SignBridge into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("groq-whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []groqwhisper.Option
		if entry.BaseURL != "" {
			opts = append(opts, groqwhisper.WithBaseURL(entry.BaseURL))
		}
		return groqwhisper.New(entry.APIKey, entry.Model, opts...)
	})

	// ── LLM ───────────────────────────────────────────────────────────────────

	reg.RegisterLLM("groq", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.NewGroq(entry.Model, opts...)
	})

	reg.RegisterLLM("openrouter", func(entry config.ProviderEntry) (llm.Provider, error) {
		return anyllm.NewOpenRouter(entry.Model, entry.APIKey)
	})

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	// mistral shares the generic any-llm path; ollama is a local server and
	// uses BaseURL for the address rather than an API key.
	reg.RegisterLLM("mistral", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		return anyllm.New("mistral", entry.Model, opts...)
	})

	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	for kind, names := range config.ValidProviderNames {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildSTT creates the configured speech-to-text provider, or nil when none
// is configured. The server still runs without one; clients fall back to
// browser transcription.
func buildSTT(cfg *config.Config, reg *config.Registry) (stt.Provider, error) {
	name := cfg.Providers.STT.Name
	if name == "" {
		slog.Info("no stt provider configured — /api/transcribe disabled")
		return nil, nil
	}
	p, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", name, err)
	}
	slog.Info("provider created", "kind", "stt", "name", name)
	return p, nil
}

// buildNormalizer creates the gloss normalizer for the configured mode. In
// rules mode no network providers are involved; in llm mode the primary and
// each fallback get their own circuit breaker.
func buildNormalizer(cfg *config.Config, reg *config.Registry) (gloss.Normalizer, error) {
	if cfg.Gloss.Mode != config.GlossLLM {
		slog.Info("gloss normalizer ready", "mode", "rules")
		return rules.New(), nil
	}

	primaryName := cfg.Providers.LLM.Name
	primary, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", primaryName, err)
	}

	n := llmgloss.New(primary, primaryName, resilience.CircuitBreakerConfig{
		MaxFailures:  cfg.Gloss.MaxFailures,
		ResetTimeout: cfg.Gloss.ResetTimeout,
	})
	for _, entry := range cfg.Providers.LLMFallbacks {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create llm fallback %q: %w", entry.Name, err)
		}
		n.AddFallback(entry.Name, p)
	}

	slog.Info("gloss normalizer ready", "mode", "llm",
		"primary", primaryName, "fallbacks", len(cfg.Providers.LLMFallbacks))
	return n, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, listenAddr string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        SignBridge — startup summary   ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Gloss mode      : %-19s ║\n", glossModeLabel(cfg.Gloss.Mode))
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	fmt.Printf("║  LLM fallbacks   : %-19d ║\n", len(cfg.Providers.LLMFallbacks))
	if cfg.Archive.PostgresDSN != "" {
		fmt.Printf("║  Archive         : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  Archive         : %-19s ║\n", "(disabled)")
	}
	fmt.Printf("║  Listen addr     : %-19s ║\n", listenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func glossModeLabel(mode config.GlossMode) string {
	if mode == "" {
		return string(config.GlossRules)
	}
	return string(mode)
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
