package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"weeklysummary/internal"
	"weeklysummary/internal/aggregate"
)

var (
	weekStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	weekEnd   = time.Date(2024, 1, 7, 23, 59, 59, 0, time.UTC)
	generated = time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
)

func sampleActivities() []internal.Activity {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	return []internal.Activity{
		internal.MustActivity(internal.ActivityParams{
			Timestamp:    base,
			Title:        "Commit to repo",
			Description:  "Fix bug",
			Source:       "github",
			ActivityType: "commit",
			URL:          null.StringFrom("https://github.com/test/repo/commit/123"),
		}),
		internal.MustActivity(internal.ActivityParams{
			Timestamp:    base.Add(4 * time.Hour),
			Title:        "Message in #general",
			Description:  "Discussed the new feature",
			Source:       "slack",
			ActivityType: "message",
		}),
		internal.MustActivity(internal.ActivityParams{
			Timestamp:    base.Add(6 * time.Hour),
			Title:        "Sent email",
			Description:  "Follow up on meeting",
			Source:       "email",
			ActivityType: "email_sent",
		}),
	}
}

func merged(t *testing.T, activities []internal.Activity) aggregate.Result {
	t.Helper()
	res, err := aggregate.Merge(activities, weekStart, weekEnd)
	require.NoError(t, err)
	return res
}

func newTestGenerator(dir string) *Generator {
	g := NewGenerator(dir)
	g.Now = func() time.Time { return generated }
	return g
}

func render(t *testing.T, g *Generator, in Input) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, g.Render(&buf, in))
	return buf.String()
}

func goldenFixture(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRender_Golden(t *testing.T) {
	g := newTestGenerator(t.TempDir())
	out := render(t, g, Input{
		Result: merged(t, sampleActivities()),
		Summaries: map[string]string{
			"github": "This week focused on bug fixes and new features.",
			"slack":  "Team discussed architecture and planning.",
		},
	})

	goldenFixture(t).Assert(t, "three_sources_with_summaries", []byte(out))
}

func TestRender_GoldenEmpty(t *testing.T) {
	g := newTestGenerator(t.TempDir())
	g.Draft = true

	out := render(t, g, Input{Result: merged(t, nil)})

	goldenFixture(t).Assert(t, "empty_week", []byte(out))
}

func TestGenerate_WritesReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	g := newTestGenerator(dir)

	path, err := g.Generate(Input{Result: merged(t, sampleActivities())})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "weekly-summary_2024-01-01_to_2024-01-07.md"), path)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "# Weekly Summary")
	assert.Contains(t, content, "## 📊 Activity Summary")
	assert.Contains(t, content, "## Activities by Source")
	assert.Contains(t, content, "## Timeline")
	assert.Contains(t, content, "totalActivities: 3")
	assert.Contains(t, content, "**Total Activities:** 3")
	for _, title := range []string{"Commit to repo", "Message in #general", "Sent email"} {
		assert.Contains(t, content, title)
	}
	assert.Equal(t, 1, strings.Count(content, "### Monday, January 01, 2024"))
	assert.NotContains(t, content, "## 📝 Summary")
}

func TestGenerate_CustomOutputName(t *testing.T) {
	g := newTestGenerator(t.TempDir())

	path, err := g.Generate(Input{Result: merged(t, sampleActivities()), Output: "custom-report.md"})
	require.NoError(t, err)
	assert.Equal(t, "custom-report.md", filepath.Base(path))
}

func TestGenerate_CustomPrefix(t *testing.T) {
	g := newTestGenerator(t.TempDir())
	g.Prefix = "team"

	assert.Equal(t, "team_2024-01-01_to_2024-01-07.md", g.FileName(Input{Result: merged(t, nil)}))
}

func TestGenerate_UnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	g := newTestGenerator(blocker)

	_, err := g.Generate(Input{Result: merged(t, sampleActivities())})
	assert.Error(t, err)
}

func TestRender_EmptyWeek(t *testing.T) {
	out := render(t, newTestGenerator(""), Input{Result: merged(t, nil)})

	assert.Contains(t, out, "**Total Activities:** 0")
	assert.Contains(t, out, "totalActivities: 0")
	assert.NotContains(t, out, "- **")
	assert.True(t, strings.HasSuffix(out, "## Timeline\n"))
}

func TestRender_Idempotent(t *testing.T) {
	g := newTestGenerator("")
	in := Input{
		Result:    merged(t, sampleActivities()),
		Summaries: map[string]string{"github": "X", "slack": "Y"},
	}

	assert.Equal(t, render(t, g, in), render(t, g, in))
}

func TestRender_Links(t *testing.T) {
	out := render(t, newTestGenerator(""), Input{Result: merged(t, sampleActivities())})

	assert.Contains(t, out, "- **10:00 AM** [Commit to repo](https://github.com/test/repo/commit/123)")
	assert.Contains(t, out, "- **02:00 PM** Message in #general\n")
	assert.NotContains(t, out, "[Message in #general]")
	assert.NotContains(t, out, "[Sent email]")
}

func TestRender_GithubSummaryOnly(t *testing.T) {
	out := render(t, newTestGenerator(""), Input{
		Result:    merged(t, sampleActivities()),
		Summaries: map[string]string{"github": "X"},
	})

	assert.Contains(t, out, "## 📝 Summary")
	assert.Contains(t, out, "### Development Work\n\nX\n")
	assert.NotContains(t, out, "### Team Discussions & Collaboration")
}

func TestRender_SlackSummaryOnly(t *testing.T) {
	out := render(t, newTestGenerator(""), Input{
		Result:    merged(t, sampleActivities()),
		Summaries: map[string]string{"slack": "Slack discussion summary."},
	})

	assert.Contains(t, out, "### Team Discussions & Collaboration")
	assert.Contains(t, out, "Slack discussion summary.")
	assert.NotContains(t, out, "### Development Work")
}

func TestRender_UnknownSummaryKeysDropped(t *testing.T) {
	out := render(t, newTestGenerator(""), Input{
		Result:    merged(t, sampleActivities()),
		Summaries: map[string]string{"email": "should not appear", "github": ""},
	})

	assert.NotContains(t, out, "should not appear")
	assert.NotContains(t, out, "### Development Work")
}

func TestRender_EmptySummariesOmitNarrative(t *testing.T) {
	out := render(t, newTestGenerator(""), Input{
		Result:    merged(t, sampleActivities()),
		Summaries: map[string]string{},
	})

	assert.NotContains(t, out, "## 📝 Summary")
	assert.Contains(t, out, "## 📊 Activity Summary")
}

func TestRender_MultiLineDescription(t *testing.T) {
	a := internal.MustActivity(internal.ActivityParams{
		Timestamp:    time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC),
		Title:        "Reviewed PR: Add cache",
		Description:  "Looks good overall.\n\n  Please add a test  \nfor eviction.",
		Source:       "github",
		ActivityType: "pr_review",
	})

	out := render(t, newTestGenerator(""), Input{Result: merged(t, []internal.Activity{a})})

	assert.Contains(t, out, "#### Pr Review (1)")
	assert.Contains(t, out,
		"- **03:30 PM** Reviewed PR: Add cache\n  > Looks good overall.\n  > Please add a test\n  > for eviction.\n")
}

func TestRender_BlankDescriptionOmitted(t *testing.T) {
	a := internal.MustActivity(internal.ActivityParams{
		Timestamp:    time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC),
		Title:        "Quiet commit",
		Description:  "  \n ",
		Source:       "github",
		ActivityType: "commit",
	})

	out := render(t, newTestGenerator(""), Input{Result: merged(t, []internal.Activity{a})})

	assert.Contains(t, out, "- **08:00 AM** Quiet commit\n\n")
	assert.NotContains(t, out, ">")
}

func TestRender_TimelineDaysInOrder(t *testing.T) {
	mk := func(day int, source string) internal.Activity {
		return internal.MustActivity(internal.ActivityParams{
			Timestamp:    time.Date(2024, 1, day, 9, 0, 0, 0, time.UTC),
			Title:        source + " item",
			Source:       source,
			ActivityType: "message",
		})
	}
	out := render(t, newTestGenerator(""), Input{Result: merged(t, []internal.Activity{
		mk(3, "slack"), mk(1, "github"), mk(7, "slack"),
	})})

	first := strings.Index(out, "### Monday, January 01, 2024")
	second := strings.Index(out, "### Wednesday, January 03, 2024")
	third := strings.Index(out, "### Sunday, January 07, 2024")
	require.True(t, first > 0 && second > 0 && third > 0)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
	assert.Contains(t, out, "- **Slack:** 2 activities")
	assert.Contains(t, out, "- **Github:** 1 activities")
	assert.Contains(t, out, "  github: 1\n  slack: 2\n")
}

func TestRender_ActivityTypesInFirstSeenOrder(t *testing.T) {
	mk := func(hour int, typ string) internal.Activity {
		return internal.MustActivity(internal.ActivityParams{
			Timestamp:    time.Date(2024, 1, 2, hour, 0, 0, 0, time.UTC),
			Title:        typ,
			Source:       "github",
			ActivityType: typ,
		})
	}
	out := render(t, newTestGenerator(""), Input{Result: merged(t, []internal.Activity{
		mk(9, "pr_created"), mk(10, "commit"), mk(11, "pr_created"),
	})})

	created := strings.Index(out, "#### Pr Created (2)")
	commit := strings.Index(out, "#### Commit (1)")
	require.True(t, created > 0 && commit > 0)
	assert.Less(t, created, commit)
}
