package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gopkg.in/guregu/null.v3"

	"weeklysummary/internal"
)

const (
	GitHubName       = "github"
	githubAPIBaseURL = "https://api.github.com"
	githubPageSize   = "100"
)

// GitHub reports commits, created pull requests and submitted reviews for one
// user through the REST API.
type GitHub struct {
	baseURL    string
	token      string
	username   string
	repos      []string
	httpClient HTTPClient
	logger     *slog.Logger
}

func NewGitHub(cfg internal.SourceConfig, env Env) *GitHub {
	env = env.withDefaults()
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = githubAPIBaseURL
	}
	return &GitHub{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      cfg.Token,
		username:   cfg.Username,
		repos:      cfg.Repos,
		httpClient: env.HTTPClient,
		logger:     env.Logger.With("source", GitHubName),
	}
}

func (g *GitHub) Name() string { return GitHubName }

// Validate checks that credentials are present and accepted by the API.
func (g *GitHub) Validate(ctx context.Context) error {
	if g.token == "" {
		return errors.New("github token is required")
	}
	if g.username == "" {
		return errors.New("github username is required")
	}
	var user githubUser
	if err := g.doRequest(ctx, g.baseURL+"/user", &user); err != nil {
		return fmt.Errorf("invalid github credentials: %w", err)
	}
	return nil
}

func (g *GitHub) Fetch(ctx context.Context, start, end time.Time) ([]internal.Activity, error) {
	var activities []internal.Activity
	activities = append(activities, g.commits(ctx, start, end)...)
	activities = append(activities, g.pullRequests(ctx, start, end)...)
	activities = append(activities, g.reviews(ctx, start, end)...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return activities, nil
}

func (g *GitHub) commits(ctx context.Context, start, end time.Time) []internal.Activity {
	repos, err := g.repositories(ctx)
	if err != nil {
		g.logger.Warn("skipping commits, cannot list repositories", "error", err)
		return nil
	}

	var activities []internal.Activity
	for _, repo := range repos {
		q := url.Values{
			"author":   {g.username},
			"since":    {start.UTC().Format(time.RFC3339)},
			"until":    {end.UTC().Format(time.RFC3339)},
			"per_page": {githubPageSize},
		}
		commits, err := getAllPages[githubCommit](ctx, g, fmt.Sprintf("%s/repos/%s/commits?%s", g.baseURL, repo, q.Encode()))
		if err != nil {
			g.logger.Warn("skipping repository", "repo", repo, "error", err)
			continue
		}
		for _, c := range commits {
			ts := c.Commit.Author.Date
			if !within(ts, start, end) {
				continue
			}
			a, err := internal.NewActivity(internal.ActivityParams{
				Timestamp:    ts,
				Title:        "Commit to " + repo,
				Description:  firstLine(c.Commit.Message),
				Source:       GitHubName,
				ActivityType: "commit",
				URL:          null.NewString(c.HTMLURL, c.HTMLURL != ""),
				Metadata:     internal.Metadata{"repo": repo, "sha": c.SHA},
			})
			if err != nil {
				g.logger.Warn("dropping commit", "repo", repo, "sha", c.SHA, "error", err)
				continue
			}
			activities = append(activities, a)
		}
	}
	return activities
}

// repositories returns the configured filter, or every repository the token
// can see.
func (g *GitHub) repositories(ctx context.Context) ([]string, error) {
	if len(g.repos) > 0 {
		return g.repos, nil
	}
	repos, err := getAllPages[githubRepository](ctx, g, g.baseURL+"/user/repos?per_page="+githubPageSize)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		names = append(names, r.FullName)
	}
	return names, nil
}

func (g *GitHub) pullRequests(ctx context.Context, start, end time.Time) []internal.Activity {
	issues, err := g.search(ctx, "author:"+g.username+" is:pr created:"+dateSpan(start, end))
	if err != nil {
		g.logger.Warn("skipping pull requests", "error", err)
		return nil
	}

	var activities []internal.Activity
	for _, is := range issues {
		if !within(is.CreatedAt, start, end) {
			continue
		}
		a, err := internal.NewActivity(internal.ActivityParams{
			Timestamp:    is.CreatedAt,
			Title:        "Created PR: " + is.Title,
			Description:  is.Body,
			Source:       GitHubName,
			ActivityType: "pr_created",
			URL:          null.NewString(is.HTMLURL, is.HTMLURL != ""),
			Metadata: internal.Metadata{
				"repo":   is.repo(),
				"number": is.Number,
				"state":  is.State,
				"merged": is.PullRequest.MergedAt != nil,
			},
		})
		if err != nil {
			g.logger.Warn("dropping pull request", "number", is.Number, "error", err)
			continue
		}
		activities = append(activities, a)
	}
	return activities
}

func (g *GitHub) reviews(ctx context.Context, start, end time.Time) []internal.Activity {
	issues, err := g.search(ctx, "reviewed-by:"+g.username+" is:pr updated:"+dateSpan(start, end))
	if err != nil {
		g.logger.Warn("skipping reviews", "error", err)
		return nil
	}

	var activities []internal.Activity
	for _, is := range issues {
		repo := is.repo()
		reviews, err := getAllPages[githubReview](ctx, g, fmt.Sprintf("%s/repos/%s/pulls/%d/reviews?per_page=%s", g.baseURL, repo, is.Number, githubPageSize))
		if err != nil {
			g.logger.Warn("skipping reviews for pull request", "repo", repo, "number", is.Number, "error", err)
			continue
		}
		for _, r := range reviews {
			if r.User.Login != g.username || r.SubmittedAt == nil || !within(*r.SubmittedAt, start, end) {
				continue
			}
			desc := r.Body
			if desc == "" {
				desc = r.State + " review"
			}
			a, err := internal.NewActivity(internal.ActivityParams{
				Timestamp:    *r.SubmittedAt,
				Title:        "Reviewed PR: " + is.Title,
				Description:  desc,
				Source:       GitHubName,
				ActivityType: "pr_review",
				URL:          null.NewString(is.HTMLURL, is.HTMLURL != ""),
				Metadata: internal.Metadata{
					"repo":         repo,
					"number":       is.Number,
					"review_state": r.State,
				},
			})
			if err != nil {
				g.logger.Warn("dropping review", "repo", repo, "number", is.Number, "error", err)
				continue
			}
			activities = append(activities, a)
		}
	}
	return activities
}

func (g *GitHub) search(ctx context.Context, query string) ([]githubIssue, error) {
	for _, repo := range g.repos {
		query += " repo:" + repo
	}
	q := url.Values{"q": {query}, "per_page": {githubPageSize}}
	var items []githubIssue
	for next := g.baseURL + "/search/issues?" + q.Encode(); next != ""; {
		var res githubSearchResult
		var err error
		if next, err = g.doPage(ctx, next, &res); err != nil {
			return nil, err
		}
		items = append(items, res.Items...)
	}
	return items, nil
}

// getAllPages follows rel="next" links from rawURL and concatenates every
// page of a list endpoint.
func getAllPages[T any](ctx context.Context, g *GitHub, rawURL string) ([]T, error) {
	var all []T
	for next := rawURL; next != ""; {
		var page []T
		var err error
		if next, err = g.doPage(ctx, next, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
	}
	return all, nil
}

func (g *GitHub) doRequest(ctx context.Context, url string, result any) error {
	_, err := g.doPage(ctx, url, result)
	return err
}

// doPage decodes one response into result and returns the URL of the next
// page, or "" on the last one.
func (g *GitHub) doPage(ctx context.Context, url string, result any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return nextLink(resp.Header.Get("Link")), nil
}

// nextLink extracts the rel="next" target from a Link header such as
// `<https://api.github.com/...&page=2>; rel="next", <...>; rel="last"`.
func nextLink(header string) string {
	for _, link := range strings.Split(header, ",") {
		target, params, ok := strings.Cut(strings.TrimSpace(link), ";")
		if !ok {
			continue
		}
		for _, p := range strings.Split(params, ";") {
			if strings.TrimSpace(p) == `rel="next"` {
				return strings.Trim(strings.TrimSpace(target), "<>")
			}
		}
	}
	return ""
}

func dateSpan(start, end time.Time) string {
	return start.UTC().Format(time.DateOnly) + ".." + end.UTC().Format(time.DateOnly)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

type githubUser struct {
	Login string `json:"login"`
}

type githubRepository struct {
	FullName string `json:"full_name"`
}

type githubCommit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

type githubSearchResult struct {
	Items []githubIssue `json:"items"`
}

type githubIssue struct {
	Number        int       `json:"number"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	State         string    `json:"state"`
	HTMLURL       string    `json:"html_url"`
	RepositoryURL string    `json:"repository_url"`
	CreatedAt     time.Time `json:"created_at"`
	PullRequest   struct {
		MergedAt *time.Time `json:"merged_at"`
	} `json:"pull_request"`
}

// repo extracts owner/name from repository_url.
func (i githubIssue) repo() string {
	_, repo, ok := strings.Cut(i.RepositoryURL, "/repos/")
	if !ok {
		return "unknown"
	}
	return repo
}

type githubReview struct {
	User struct {
		Login string `json:"login"`
	} `json:"user"`
	Body        string     `json:"body"`
	State       string     `json:"state"`
	SubmittedAt *time.Time `json:"submitted_at"`
}
