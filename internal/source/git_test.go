package source

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weeklysummary/internal"
)

func gitRecord(sha, date, subject string) string {
	return sha + fieldSep + date + fieldSep + subject + recordSep
}

func newTestGit(run gitRunner, repos ...internal.Repo) *Git {
	g := NewGit(internal.SourceConfig{Username: "Ada", Paths: repos}, quietEnv())
	g.run = run
	return g
}

func TestGit_Fetch(t *testing.T) {
	var gotArgs []string
	run := func(_ context.Context, dir string, args ...string) ([]byte, error) {
		switch dir {
		case "/src/api":
			gotArgs = args
			return []byte(strings.Join([]string{
				gitRecord("aaa111", "2024-01-02T09:15:00+01:00", "Add retry budget"),
				"\n" + gitRecord("bbb222", "2023-12-31T23:30:00Z", "Before the window"),
			}, "")), nil
		default:
			return nil, errors.New("fatal: not a git repository")
		}
	}
	g := newTestGit(run, internal.Repo{Name: "api", Path: "/src/api"}, internal.Repo{Path: "/src/gone"})

	activities, err := g.Fetch(context.Background(), weekStart, weekEnd)
	require.NoError(t, err)
	require.Len(t, activities, 1)

	a := activities[0]
	assert.Equal(t, "git", a.Source())
	assert.Equal(t, "commit", a.ActivityType())
	assert.Equal(t, "Commit to api", a.Title())
	assert.Equal(t, "Add retry budget", a.Description())
	assert.True(t, a.Timestamp().Equal(time.Date(2024, 1, 2, 8, 15, 0, 0, time.UTC)))
	assert.Equal(t, "aaa111", a.Metadata().StringOr("sha", ""))

	assert.Contains(t, gotArgs, "--author=Ada")
	assert.Contains(t, gotArgs, "--since=2024-01-01T00:00:00Z")
}

func TestGit_Validate(t *testing.T) {
	run := func(_ context.Context, dir string, args ...string) ([]byte, error) {
		if dir == "/src/api" {
			return []byte("true\n"), nil
		}
		return nil, errors.New("exit status 128")
	}

	assert.NoError(t, newTestGit(run, internal.Repo{Path: "/src/api"}).Validate(context.Background()))
	assert.Error(t, newTestGit(run, internal.Repo{Path: "/src/api"}, internal.Repo{Path: "/tmp"}).Validate(context.Background()))
	assert.EqualError(t, newTestGit(run).Validate(context.Background()), "git paths are required")
}

func TestGit_ValidateInsideGitDir(t *testing.T) {
	run := func(_ context.Context, dir string, args ...string) ([]byte, error) {
		return []byte("false\n"), nil
	}

	err := newTestGit(run, internal.Repo{Path: "/src/api/.git"}).Validate(context.Background())
	assert.EqualError(t, err, `/src/api/.git is not a git work tree: rev-parse reported "false"`)
}

func TestParseGitLog(t *testing.T) {
	commits, err := parseGitLog("")
	require.NoError(t, err)
	assert.Empty(t, commits)

	_, err = parseGitLog("not a record")
	assert.Error(t, err)

	_, err = parseGitLog(gitRecord("abc", "yesterday", "x"))
	assert.Error(t, err)
}
