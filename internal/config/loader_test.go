package config_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/signbridge/internal/config"
)

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: bananas
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_InvalidGlossMode(t *testing.T) {
	t.Parallel()
	yaml := `
gloss:
  mode: telepathy
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid gloss mode, got nil")
	}
	if !strings.Contains(err.Error(), "gloss.mode") {
		t.Errorf("error should mention gloss.mode, got: %v", err)
	}
}

func TestValidate_LLMModeRequiresProvider(t *testing.T) {
	t.Parallel()
	yaml := `
gloss:
  mode: llm
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for llm mode without a provider, got nil")
	}
	if !strings.Contains(err.Error(), "LLM provider") {
		t.Errorf("error should mention LLM provider, got: %v", err)
	}
}

func TestValidate_LLMModeWithProviderIsValid(t *testing.T) {
	t.Parallel()
	yaml := `
gloss:
  mode: llm
providers:
  llm:
    name: groq
    api_key: gsk_test
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_FallbacksRequirePrimary(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm_fallbacks:
    - name: openrouter
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for fallbacks without a primary, got nil")
	}
	if !strings.Contains(err.Error(), "primary") {
		t.Errorf("error should mention primary, got: %v", err)
	}
}

func TestValidate_FallbackNameRequired(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: groq
  llm_fallbacks:
    - model: some-model
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for fallback without a name, got nil")
	}
	if !strings.Contains(err.Error(), "llm_fallbacks[0].name") {
		t.Errorf("error should name the offending entry, got: %v", err)
	}
}

func TestValidate_InvalidDefaultLanguage(t *testing.T) {
	t.Parallel()
	yaml := `
session:
  default_language: klingon
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown language, got nil")
	}
	if !strings.Contains(err.Error(), "default_language") {
		t.Errorf("error should mention default_language, got: %v", err)
	}
}

func TestValidate_NegativeSessionValues(t *testing.T) {
	t.Parallel()
	yaml := `
session:
  history_size: -1
  grace_period: -5s
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors for negative session values, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "history_size") {
		t.Errorf("error should mention history_size, got: %v", err)
	}
	if !strings.Contains(errStr, "grace_period") {
		t.Errorf("error should mention grace_period, got: %v", err)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	if !slices.Contains(config.ValidProviderNames["llm"], "groq") {
		t.Error(`ValidProviderNames["llm"] should contain "groq"`)
	}
	if !slices.Contains(config.ValidProviderNames["stt"], "groq-whisper") {
		t.Error(`ValidProviderNames["stt"] should contain "groq-whisper"`)
	}
}
