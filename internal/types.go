package internal

import "sort"

// Config models the weekly-summary configuration document. Both the TOML and
// YAML forms decode into it.
type Config struct {
	OutputDir    string                  `toml:"output_dir" yaml:"output_dir"`
	Draft        bool                    `toml:"draft" yaml:"draft"`
	OpenAIAPIKey string                  `toml:"openai_api_key" yaml:"openai_api_key"`
	Summary      SummaryConfig           `toml:"summary" yaml:"summary"`
	Sources      map[string]SourceConfig `toml:"sources" yaml:"sources"`

	// SourceOrder holds source names in document order. Filled by the loader.
	SourceOrder []string `toml:"-" yaml:"-"`
}

type SummaryConfig struct {
	Mode  string `toml:"mode" yaml:"mode"`
	Model string `toml:"model" yaml:"model"`
}

// SourceConfig is the union of settings understood by every adapter. Each
// adapter reads the keys it needs and ignores the rest.
type SourceConfig struct {
	Enabled *bool `toml:"enabled" yaml:"enabled"`

	Token    string   `toml:"token" yaml:"token"`
	Username string   `toml:"username" yaml:"username"`
	Repos    []string `toml:"repos" yaml:"repos"`
	Channels []string `toml:"channels" yaml:"channels"`
	BaseURL  string   `toml:"base_url" yaml:"base_url"`

	Host     string   `toml:"host" yaml:"host"`
	Port     int      `toml:"port" yaml:"port"`
	Email    string   `toml:"email" yaml:"email"`
	Password string   `toml:"password" yaml:"password"`
	UseSSL   *bool    `toml:"use_ssl" yaml:"use_ssl"`
	Folders  []string `toml:"folders" yaml:"folders"`

	Paths []Repo `toml:"paths" yaml:"paths"`
}

// Repo is a local repository scanned by the git source.
type Repo struct {
	Name string `toml:"name" yaml:"name"`
	Path string `toml:"path" yaml:"path"`
}

// IsEnabled reports whether the source should run. Sources are enabled unless
// explicitly switched off.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// SSL defaults to true.
func (s SourceConfig) SSL() bool {
	return s.UseSSL == nil || *s.UseSSL
}

// SourceNames returns configured source names in document order, falling
// back to lexical order when the order is unknown.
func (c Config) SourceNames() []string {
	if len(c.SourceOrder) == len(c.Sources) {
		return append([]string(nil), c.SourceOrder...)
	}
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
