package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"weeklysummary/internal"
)

const GitName = "git"

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// gitRunner runs git in dir and returns stdout.
type gitRunner func(ctx context.Context, dir string, args ...string) ([]byte, error)

// Git reports commits from repositories on the local disk.
type Git struct {
	repos  []internal.Repo
	author string
	run    gitRunner
	logger *slog.Logger
}

func NewGit(cfg internal.SourceConfig, env Env) *Git {
	env = env.withDefaults()
	author := cfg.Username
	if author == "" {
		author = cfg.Email
	}
	return &Git{
		repos:  cfg.Paths,
		author: author,
		run:    runGit,
		logger: env.Logger.With("source", GitName),
	}
}

func (g *Git) Name() string { return GitName }

// Validate checks that every configured path is a git work tree.
func (g *Git) Validate(ctx context.Context) error {
	if len(g.repos) == 0 {
		return errors.New("git paths are required")
	}
	var errs error
	for _, repo := range g.repos {
		if repo.Path == "" {
			errs = errors.Join(errs, fmt.Errorf("repository %q has no path", repo.Name))
			continue
		}
		out, err := g.run(ctx, repo.Path, "rev-parse", "--is-inside-work-tree")
		switch {
		case err != nil:
			errs = errors.Join(errs, fmt.Errorf("%s is not a git work tree: %w", repo.Path, err))
		case strings.TrimSpace(string(out)) != "true":
			errs = errors.Join(errs, fmt.Errorf("%s is not a git work tree: rev-parse reported %q", repo.Path, strings.TrimSpace(string(out))))
		}
	}
	return errs
}

func (g *Git) Fetch(ctx context.Context, start, end time.Time) ([]internal.Activity, error) {
	var activities []internal.Activity
	for _, repo := range g.repos {
		items, err := g.log(ctx, repo, start, end)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			g.logger.Warn("skipping repository", "repo", repoName(repo), "error", err)
			continue
		}
		activities = append(activities, items...)
	}
	return activities, nil
}

func (g *Git) log(ctx context.Context, repo internal.Repo, start, end time.Time) ([]internal.Activity, error) {
	args := []string{
		"log", "--no-merges",
		"--since=" + start.Format(time.RFC3339),
		"--until=" + end.Format(time.RFC3339),
		"--pretty=format:%H" + fieldSep + "%aI" + fieldSep + "%s" + recordSep,
	}
	if g.author != "" {
		args = append(args, "--author="+g.author)
	}
	out, err := g.run(ctx, repo.Path, args...)
	if err != nil {
		return nil, err
	}

	commits, err := parseGitLog(string(out))
	if err != nil {
		return nil, err
	}

	name := repoName(repo)
	var activities []internal.Activity
	for _, c := range commits {
		if !within(c.when, start, end) {
			continue
		}
		a, err := internal.NewActivity(internal.ActivityParams{
			Timestamp:    c.when,
			Title:        "Commit to " + name,
			Description:  c.subject,
			Source:       GitName,
			ActivityType: "commit",
			Metadata:     internal.Metadata{"repo": name, "sha": c.sha},
		})
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, nil
}

type gitCommit struct {
	sha     string
	when    time.Time
	subject string
}

func parseGitLog(output string) ([]gitCommit, error) {
	var commits []gitCommit
	for _, record := range strings.Split(output, recordSep) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		parts := strings.SplitN(record, fieldSep, 3)
		if len(parts) < 3 {
			return nil, errors.New("unexpected git log output: " + record)
		}
		when, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, fmt.Errorf("unexpected commit date %q: %w", parts[1], err)
		}
		commits = append(commits, gitCommit{sha: parts[0], when: when, subject: strings.TrimSpace(parts[2])})
	}
	return commits, nil
}

func runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.Contains(stderr.String(), "does not have any commits yet") {
			// git exits 128 on a freshly initialized repository; treat as no history.
			return nil, nil
		}
		return nil, fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func repoName(repo internal.Repo) string {
	if repo.Name != "" {
		return repo.Name
	}
	return repo.Path
}
