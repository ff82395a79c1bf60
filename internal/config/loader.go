package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"groq-whisper"},
	"llm": {"groq", "openrouter", "openai", "mistral", "ollama"},
}

// validLanguages is the closed set of supported sign language codes.
var validLanguages = []string{"asl", "bsl", "isl"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Gloss mode
	if cfg.Gloss.Mode != "" && !cfg.Gloss.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("gloss.mode %q is invalid; valid values: rules, llm", cfg.Gloss.Mode))
	}
	if cfg.Gloss.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("gloss.max_failures must not be negative"))
	}
	if cfg.Gloss.ResetTimeout < 0 {
		errs = append(errs, fmt.Errorf("gloss.reset_timeout must not be negative"))
	}

	// Gloss mode ↔ provider cross-validation
	if cfg.Gloss.Mode == GlossLLM && cfg.Providers.LLM.Name == "" {
		errs = append(errs, fmt.Errorf("gloss.mode %q requires an LLM provider but providers.llm is not configured", GlossLLM))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	for i, fb := range cfg.Providers.LLMFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.llm_fallbacks[%d].name is required", i))
			continue
		}
		validateProviderName("llm", fb.Name)
	}
	if len(cfg.Providers.LLMFallbacks) > 0 && cfg.Providers.LLM.Name == "" {
		errs = append(errs, fmt.Errorf("providers.llm_fallbacks is set but providers.llm (the primary) is not"))
	}

	// Provider availability warnings
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider configured; the /api/transcribe endpoint will be unavailable")
	}

	// Session
	if cfg.Session.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("session.history_size must not be negative"))
	}
	if cfg.Session.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("session.grace_period must not be negative"))
	}
	if lang := cfg.Session.DefaultLanguage; lang != "" && !slices.Contains(validLanguages, lang) {
		errs = append(errs, fmt.Errorf("session.default_language %q is invalid; valid values: asl, bsl, isl", lang))
	}

	// Archive availability
	if cfg.Archive.PostgresDSN == "" {
		slog.Debug("archive.postgres_dsn is empty; exported snapshots will not be persisted")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
