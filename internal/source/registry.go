// Package source holds the activity adapters and the registry that builds
// them from configuration.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"weeklysummary/internal"
)

// ErrUnknownSource is reported for configured names nothing is registered under.
var ErrUnknownSource = errors.New("unknown source")

const mockSuffix = "_mock"

// HTTPClient is the subset of *http.Client the web adapters need.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Env carries the shared dependencies handed to every factory.
type Env struct {
	HTTPClient HTTPClient
	Logger     *slog.Logger
}

func (e Env) withDefaults() Env {
	if e.HTTPClient == nil {
		e.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	return e
}

// Factory constructs a source from its configuration block.
type Factory func(cfg internal.SourceConfig, env Env) (internal.Source, error)

type entry struct {
	description string
	factory     Factory
}

// Registry maps configuration names to factories.
type Registry struct {
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Default returns a registry with every built-in adapter.
func Default() *Registry {
	r := NewRegistry()
	r.Register(GitHubName, "GitHub commits, pull requests and reviews", func(cfg internal.SourceConfig, env Env) (internal.Source, error) {
		return NewGitHub(cfg, env), nil
	})
	r.Register(SlackName, "Slack messages you posted", func(cfg internal.SourceConfig, env Env) (internal.Source, error) {
		return NewSlack(cfg, env), nil
	})
	r.Register(EmailName, "Sent and received mail over IMAP", func(cfg internal.SourceConfig, env Env) (internal.Source, error) {
		return NewEmail(cfg, env), nil
	})
	r.Register(GitName, "Commits in local git repositories", func(cfg internal.SourceConfig, env Env) (internal.Source, error) {
		return NewGit(cfg, env), nil
	})
	r.Register(GitHubName+mockSuffix, "Canned GitHub activity", func(cfg internal.SourceConfig, _ Env) (internal.Source, error) {
		return NewGitHubMock(cfg), nil
	})
	r.Register(SlackName+mockSuffix, "Canned Slack activity", func(cfg internal.SourceConfig, _ Env) (internal.Source, error) {
		return NewSlackMock(cfg), nil
	})
	r.Register(EmailName+mockSuffix, "Canned email activity", func(cfg internal.SourceConfig, _ Env) (internal.Source, error) {
		return NewEmailMock(cfg), nil
	})
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name, description string, f Factory) {
	r.entries[name] = entry{description: description, factory: f}
}

// Names lists registered names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Description returns the help text registered for name.
func (r *Registry) Description(name string) string {
	return r.entries[name].description
}

// InitResult is the outcome of constructing and validating one source.
type InitResult struct {
	Name string
	Err  error
}

func (r InitResult) OK() bool {
	return r.Err == nil
}

// Build constructs and validates every enabled source in cfg, in document
// order. Disabled sources are skipped silently; unknown names are logged and
// reported. Only sources that validated are returned.
func (r *Registry) Build(ctx context.Context, cfg *internal.Config, env Env) ([]internal.Source, []InitResult) {
	env = env.withDefaults()

	var (
		sources []internal.Source
		results []InitResult
	)
	for _, name := range cfg.SourceNames() {
		sc := cfg.Sources[name]
		if !sc.IsEnabled() {
			continue
		}
		e, ok := r.entries[name]
		if !ok {
			env.Logger.Warn("skipping unknown source", "source", name)
			results = append(results, InitResult{Name: name, Err: fmt.Errorf("%w: %s", ErrUnknownSource, name)})
			continue
		}

		src, err := e.factory(sc, env)
		if err == nil {
			err = src.Validate(ctx)
		}
		if err != nil {
			env.Logger.Error("source failed to initialize", "source", name, "stage", "init", "error", err)
			results = append(results, InitResult{Name: name, Err: err})
			continue
		}
		env.Logger.Debug("source initialized", "source", name)
		results = append(results, InitResult{Name: name})
		sources = append(sources, src)
	}
	return sources, results
}

// IsMock reports whether name refers to a canned-data adapter.
func IsMock(name string) bool {
	return strings.HasSuffix(name, mockSuffix)
}

// HasEnabledMock reports whether cfg enables any canned-data adapter.
func HasEnabledMock(cfg *internal.Config) bool {
	for name, sc := range cfg.Sources {
		if IsMock(name) && sc.IsEnabled() {
			return true
		}
	}
	return false
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// truncate shortens s to at most n runes, appending suffix when cut.
func truncate(s string, n int, suffix string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + suffix
}
