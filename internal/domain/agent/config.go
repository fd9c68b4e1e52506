package agent

// Config is the persisted per-agent configuration. Enabled is a pointer so
// that "not set" (defaults to enabled) is distinguishable from an explicit
// false.
type Config struct {
	Enabled  *bool          `json:"enabled,omitempty"`
	Schedule string         `json:"schedule,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// IsEnabled reports whether the agent is enabled. Absent means enabled.
func (c Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Merge returns c overridden field-by-field by over. Option keys present in
// over replace the corresponding keys in c; keys only in c are kept.
func (c Config) Merge(over Config) Config {
	out := Config{
		Enabled:  c.Enabled,
		Schedule: c.Schedule,
	}
	if over.Enabled != nil {
		out.Enabled = over.Enabled
	}
	if over.Schedule != "" {
		out.Schedule = over.Schedule
	}
	if len(c.Options) > 0 || len(over.Options) > 0 {
		out.Options = make(map[string]any, len(c.Options)+len(over.Options))
		for k, v := range c.Options {
			out.Options[k] = v
		}
		for k, v := range over.Options {
			out.Options[k] = v
		}
	}
	return out
}

// Bool is a helper for building Config literals with an explicit enabled flag.
func Bool(v bool) *bool { return &v }

// StringOption returns the named option as a string, or fallback when the
// option is absent or not a string.
func (c Config) StringOption(name, fallback string) string {
	if v, ok := c.Options[name].(string); ok {
		return v
	}
	return fallback
}

// IntOption returns the named option as an int, or fallback when the option
// is absent or not numeric. JSON decoding yields float64 for numbers.
func (c Config) IntOption(name string, fallback int) int {
	switch v := c.Options[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}
