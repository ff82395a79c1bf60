package config

import "fmt"

// ConfigDiff describes what changed between two configs. Only the log level
// can be applied to a running server; every other change needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RestartRequired is true when any field outside the hot-reloadable set
	// changed (providers, gloss mode, session tuning, archive, server).
	RestartRequired bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !equalIgnoringLogLevel(old, new) {
		d.RestartRequired = true
	}

	return d
}

// equalIgnoringLogLevel reports whether two configs match field by field,
// disregarding the server log level.
func equalIgnoringLogLevel(a, b *Config) bool {
	if a.Server.ListenAddr != b.Server.ListenAddr {
		return false
	}
	if (a.Server.TLS == nil) != (b.Server.TLS == nil) {
		return false
	}
	if a.Server.TLS != nil && *a.Server.TLS != *b.Server.TLS {
		return false
	}
	if a.Gloss != b.Gloss {
		return false
	}
	if !providerEntryEqual(a.Providers.STT, b.Providers.STT) {
		return false
	}
	if !providerEntryEqual(a.Providers.LLM, b.Providers.LLM) {
		return false
	}
	if len(a.Providers.LLMFallbacks) != len(b.Providers.LLMFallbacks) {
		return false
	}
	for i := range a.Providers.LLMFallbacks {
		if !providerEntryEqual(a.Providers.LLMFallbacks[i], b.Providers.LLMFallbacks[i]) {
			return false
		}
	}
	if a.Session != b.Session {
		return false
	}
	return a.Archive == b.Archive
}

// providerEntryEqual compares two entries. Option values are compared by
// their formatted form so nested maps and slices cannot panic an interface
// comparison; that is good enough for restart detection.
func providerEntryEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	if len(a.Options) != len(b.Options) {
		return false
	}
	for k, av := range a.Options {
		bv, ok := b.Options[k]
		if !ok || fmt.Sprint(av) != fmt.Sprint(bv) {
			return false
		}
	}
	return true
}
