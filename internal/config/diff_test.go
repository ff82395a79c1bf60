package config_test

import (
	"testing"
	"time"

	"github.com/MrWong99/signbridge/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   config.LogInfo,
		},
		Gloss: config.GlossConfig{Mode: config.GlossRules},
		Providers: config.ProvidersConfig{
			STT: config.ProviderEntry{Name: "groq-whisper", APIKey: "k"},
			LLM: config.ProviderEntry{Name: "groq", APIKey: "k", Model: "llama-3.3-70b-versatile"},
		},
		Session: config.SessionConfig{
			HistorySize:     5,
			GracePeriod:     60 * time.Second,
			DefaultLanguage: "asl",
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()

	d := config.Diff(old, new)
	if d.LogLevelChanged {
		t.Error("LogLevelChanged should be false")
	}
	if d.RestartRequired {
		t.Error("RestartRequired should be false")
	}
}

func TestDiff_LogLevelOnly(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("LogLevelChanged should be true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q, want debug", d.NewLogLevel)
	}
	if d.RestartRequired {
		t.Error("log level change alone must not require a restart")
	}
}

func TestDiff_ProviderChangeRequiresRestart(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Providers.LLM.Model = "different-model"

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("provider change should require a restart")
	}
}

func TestDiff_GlossModeChangeRequiresRestart(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Gloss.Mode = config.GlossLLM

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("gloss mode change should require a restart")
	}
}

func TestDiff_SessionChangeRequiresRestart(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Session.GracePeriod = 30 * time.Second

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("session change should require a restart")
	}
}

func TestDiff_FallbackListChangeRequiresRestart(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Providers.LLMFallbacks = []config.ProviderEntry{{Name: "openrouter", APIKey: "k"}}

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("fallback list change should require a restart")
	}
}

func TestDiff_OptionsCompared(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	old.Providers.STT.Options = map[string]any{"language": "en"}
	new.Providers.STT.Options = map[string]any{"language": "de"}

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("option value change should require a restart")
	}
}
