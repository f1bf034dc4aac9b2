package internal

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"
)

func TestNewActivity(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	a, err := NewActivity(ActivityParams{
		Timestamp:    now,
		Title:        "Test Activity",
		Description:  "Test description",
		Source:       "test",
		ActivityType: "test_type",
		URL:          null.StringFrom("https://example.com"),
		Metadata:     Metadata{"key": "value"},
	})
	require.NoError(t, err)

	assert.Equal(t, now, a.Timestamp())
	assert.Equal(t, "Test Activity", a.Title())
	assert.Equal(t, "Test description", a.Description())
	assert.Equal(t, "test", a.Source())
	assert.Equal(t, "test_type", a.ActivityType())
	assert.True(t, a.URL().Valid)
	assert.Equal(t, "https://example.com", a.URL().String)
	assert.Equal(t, "value", a.Metadata().String("key"))
}

func TestNewActivity_RequiredFields(t *testing.T) {
	now := time.Now().UTC()
	cases := map[string]ActivityParams{
		"timestamp": {Source: "s", ActivityType: "t"},
		"source":    {Timestamp: now, ActivityType: "t"},
		"type":      {Timestamp: now, Source: "s"},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewActivity(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidActivity))
		})
	}
}

func TestActivity_OptionalFields(t *testing.T) {
	a := MustActivity(ActivityParams{
		Timestamp:    time.Now().UTC(),
		Title:        "Test",
		Source:       "test",
		ActivityType: "test",
	})
	assert.False(t, a.URL().Valid)
	assert.Empty(t, a.Metadata())
	assert.Equal(t, "", a.Metadata().String("missing"))
}

func TestActivity_Immutable(t *testing.T) {
	meta := Metadata{"repo": "acme/api"}
	a := MustActivity(ActivityParams{
		Timestamp:    time.Now().UTC(),
		Source:       "github",
		ActivityType: "commit",
		Metadata:     meta,
	})

	meta["repo"] = "changed"
	got := a.Metadata()
	got["repo"] = "changed again"

	assert.Equal(t, "acme/api", a.Metadata().String("repo"))
}

func TestActivity_ImmutableNestedValues(t *testing.T) {
	to := []string{"a@example.com"}
	labels := []any{"bug", []string{"p1"}}
	extra := map[string]any{"thread": "t1"}
	a := MustActivity(ActivityParams{
		Timestamp:    time.Now().UTC(),
		Source:       "email",
		ActivityType: "email_sent",
		Metadata:     Metadata{"to": to, "labels": labels, "extra": extra},
	})

	to[0] = "changed-at-source"
	labels[1].([]string)[0] = "changed-at-source"
	extra["thread"] = "changed-at-source"

	got := a.Metadata()
	got["to"].([]string)[0] = "changed-via-accessor"
	got["labels"].([]any)[0] = "changed-via-accessor"
	got["extra"].(map[string]any)["thread"] = "changed-via-accessor"

	meta := a.Metadata()
	assert.Equal(t, []string{"a@example.com"}, meta.Strings("to"))
	assert.Equal(t, []any{"bug", []string{"p1"}}, meta["labels"])
	assert.Equal(t, map[string]any{"thread": "t1"}, meta["extra"])
}

func TestActivity_Sorting(t *testing.T) {
	now := time.Now().UTC()
	mk := func(title string, offset time.Duration) Activity {
		return MustActivity(ActivityParams{Timestamp: now.Add(offset), Title: title, Source: "test", ActivityType: "test"})
	}
	activities := []Activity{mk("Later", 2*time.Hour), mk("Earlier", 0), mk("Middle", time.Hour)}

	sort.SliceStable(activities, func(i, j int) bool { return activities[i].Before(activities[j]) })

	assert.Equal(t, "Earlier", activities[0].Title())
	assert.Equal(t, "Middle", activities[1].Title())
	assert.Equal(t, "Later", activities[2].Title())
}

func TestActivity_DayUsesOwnLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	a := MustActivity(ActivityParams{
		Timestamp:    time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC).In(tokyo),
		Source:       "slack",
		ActivityType: "message",
	})
	assert.Equal(t, "2024-01-02", a.Day())
}

func TestActivity_Within(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 7, 23, 59, 59, 0, time.UTC)
	mk := func(ts time.Time) Activity {
		return MustActivity(ActivityParams{Timestamp: ts, Source: "s", ActivityType: "t"})
	}

	assert.True(t, mk(start).Within(start, end))
	assert.True(t, mk(end).Within(start, end))
	assert.False(t, mk(start.Add(-time.Second)).Within(start, end))
	assert.False(t, mk(end.Add(time.Second)).Within(start, end))
}

func TestMetadata_Lookups(t *testing.T) {
	m := Metadata{
		"repo":   "acme/api",
		"number": 142,
		"float":  float64(7),
		"merged": true,
		"to":     []string{"a@example.com"},
		"cc":     []any{"b@example.com", 3},
	}

	assert.Equal(t, "acme/api", m.String("repo"))
	assert.Equal(t, "142", m.String("number"))
	assert.Equal(t, "unknown", m.StringOr("channel", "unknown"))

	n, ok := m.Int("number")
	assert.True(t, ok)
	assert.Equal(t, 142, n)
	n, ok = m.Int("float")
	assert.True(t, ok)
	assert.Equal(t, 7, n)
	_, ok = m.Int("repo")
	assert.False(t, ok)

	assert.True(t, m.Bool("merged"))
	assert.False(t, m.Bool("missing"))
	assert.Equal(t, []string{"a@example.com"}, m.Strings("to"))
	assert.Equal(t, []string{"b@example.com"}, m.Strings("cc"))
	assert.Nil(t, m.Strings("missing"))

	var empty Metadata
	assert.Equal(t, "", empty.String("anything"))
}

func TestConfig_SourceNames(t *testing.T) {
	cfg := Config{Sources: map[string]SourceConfig{"slack": {}, "github": {}}}
	assert.Equal(t, []string{"github", "slack"}, cfg.SourceNames())

	cfg.SourceOrder = []string{"slack", "github"}
	assert.Equal(t, []string{"slack", "github"}, cfg.SourceNames())
}

func TestSourceConfig_Defaults(t *testing.T) {
	var sc SourceConfig
	assert.True(t, sc.IsEnabled())
	assert.True(t, sc.SSL())

	off := false
	sc.Enabled = &off
	sc.UseSSL = &off
	assert.False(t, sc.IsEnabled())
	assert.False(t, sc.SSL())
}
