package source

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"gopkg.in/guregu/null.v3"

	"weeklysummary/internal"
)

// Canned adapters for demos and tests. Each item is placed relative to the
// end of the requested window and dropped when it falls outside it.

const mockSlackDomain = "acme-corp"

type mockCommit struct {
	title, description, repo, sha string
	additions, deletions, daysAgo int
}

type mockPR struct {
	title, description, repo string
	number, daysAgo          int
	merged                   bool
}

type mockReview struct {
	title, description, repo, state string
	number, daysAgo                 int
}

type mockMessage struct {
	title, description, channel, channelID string
	isThread                               bool
	daysAgo, hour                          int
}

type mockMail struct {
	sent                     bool
	title, description, from string
	to, cc                   []string
	subject                  string
	hasAttachments           bool
	daysAgo, hour            int
}

var mockCommits = []mockCommit{
	{"Fix authentication bug in login flow", "Fixed issue where users couldn't log in with special characters in password", "acme-corp/backend", "a1b2c3d", 45, 12, 1},
	{"Add user profile caching", "Implemented Redis caching for user profiles to improve performance", "acme-corp/backend", "e4f5g6h", 234, 18, 2},
	{"Update dependencies to latest versions", "Bumped all npm packages to latest stable versions", "acme-corp/frontend", "i7j8k9l", 15, 15, 3},
	{"Refactor database connection pool", "Improved connection pool management and error handling", "acme-corp/backend", "m0n1o2p", 156, 89, 4},
	{"Add unit tests for user service", "Added comprehensive unit tests covering edge cases", "acme-corp/backend", "q3r4s5t", 312, 5, 5},
	{"Fix memory leak in websocket handler", "Properly cleanup websocket connections to prevent memory leaks", "acme-corp/backend", "u6v7w8x", 67, 23, 2},
	{"Improve error messages in API", "Made error messages more user-friendly and actionable", "acme-corp/backend", "y9z0a1b", 89, 34, 3},
}

var mockPRs = []mockPR{
	{"Feature: Add email notification system", "Implemented email notifications for important user events", "acme-corp/backend", 142, 2, true},
	{"Refactor: Improve API response format", "Standardized API responses across all endpoints", "acme-corp/backend", 145, 1, false},
	{"Feature: Dark mode support", "Added dark mode theme with user preference persistence", "acme-corp/frontend", 78, 4, true},
}

var mockReviews = []mockReview{
	{"Reviewed: Add metrics dashboard", "Reviewed and approved metrics dashboard implementation", "acme-corp/frontend", "APPROVED", 89, 3},
	{"Reviewed: Update deployment scripts", "Requested changes to improve error handling", "acme-corp/devops", "CHANGES_REQUESTED", 23, 4},
}

var mockMessages = []mockMessage{
	{"Shared weekly sprint progress in #engineering", "Updated team on completion of authentication feature and upcoming work", "engineering", "C01ABC123", false, 1, 9},
	{"Question about database migration strategy in #engineering", "Asked team for input on zero-downtime migration approach", "engineering", "C01ABC123", false, 2, 10},
	{"Shared performance optimization results in #engineering", "Posted benchmarks showing 40% improvement in API response times", "engineering", "C01ABC123", false, 4, 15},
	{"Discussed architecture decisions in #backend-team", "Proposed new microservices architecture for payment processing", "backend-team", "C02DEF456", false, 2, 14},
	{"Shared API design document in #backend-team", "Posted draft of new REST API design for team review", "backend-team", "C02DEF456", false, 3, 11},
	{"Discussed caching strategy in #backend-team", "Debated Redis vs Memcached for session storage", "backend-team", "C02DEF456", false, 4, 16},
	{"Responded to deployment question in thread in #devops", "Helped troubleshoot production deployment issue", "devops", "C03GHI789", true, 2, 16},
	{"Announced successful migration in #devops", "Database migration completed with zero downtime", "devops", "C03GHI789", false, 3, 18},
	{"Discussed monitoring alerts in #devops", "Proposed new alerting thresholds for CPU usage", "devops", "C03GHI789", false, 5, 14},
	{"Code review feedback in #pull-requests", "Provided detailed feedback on database migration PR", "pull-requests", "C04JKL012", false, 3, 11},
	{"Requested review in #pull-requests", "Asked for eyes on authentication refactor PR", "pull-requests", "C04JKL012", false, 1, 15},
	{"Meeting notes shared in #product-sync", "Documented key decisions from product planning meeting", "product-sync", "C05MNO345", false, 5, 13},
	{"Feedback on new feature proposal in #product-sync", "Provided technical feasibility assessment for Q2 roadmap items", "product-sync", "C05MNO345", false, 3, 10},
	{"Shared article about microservices in #random", "Posted interesting read on service mesh patterns", "random", "C06PQR678", false, 4, 12},
	{"Lunch plans coordination in #random", "Organized team lunch for Friday", "random", "C06PQR678", false, 2, 11},
	{"Coffee chat follow-up in #random", "Thanks for the coffee chat! Great discussion about career growth", "random", "C06PQR678", false, 1, 16},
	{"Production incident alert in #incidents", "API response times spiking, investigating root cause", "incidents", "C07STU901", false, 3, 14},
	{"Incident resolution update in #incidents", "Issue resolved - database connection pool exhaustion. Applied fix and monitoring", "incidents", "C07STU901", true, 3, 15},
	{"Security review feedback in #security", "Addressed concerns about API authentication flow", "security", "C08VWX234", false, 4, 13},
	{"Daily standup update in #standup", "Yesterday: Fixed auth bug. Today: Working on caching layer. Blockers: None", "standup", "C09YZA567", false, 1, 9},
	{"Daily standup update in #standup", "Yesterday: Caching layer. Today: Performance testing. Blockers: Waiting on staging env", "standup", "C09YZA567", false, 2, 9},
	{"Daily standup update in #standup", "Yesterday: Performance tests. Today: Code review and documentation. Blockers: None", "standup", "C09YZA567", false, 3, 9},
}

var mockMails = []mockMail{
	{true, "Q1 Project Status Update", "Sent quarterly update to stakeholders", "", []string{"stakeholders@acme-corp.com"}, []string{"team@acme-corp.com"}, "Q1 Project Status Update - Backend Team", true, 1, 10},
	{true, "Re: Database migration plan", "Responded with detailed migration strategy", "", []string{"dba@acme-corp.com"}, nil, "Re: Database migration plan", false, 2, 11},
	{false, "Security audit requirements", "Received security audit checklist from InfoSec", "security@acme-corp.com", nil, []string{"engineering@acme-corp.com"}, "Security audit requirements for Q1", true, 2, 14},
	{true, "API documentation updates", "Shared updated API documentation with external partners", "", []string{"partners@external-company.com"}, []string{"product@acme-corp.com"}, "API Documentation v2.1 - Breaking Changes", true, 3, 15},
	{false, "Interview feedback request", "HR requested feedback on recent engineering candidate", "hr@acme-corp.com", nil, nil, "Interview Feedback - Senior Backend Engineer", false, 4, 9},
	{true, "Performance optimization proposal", "Sent proposal for database optimization initiative", "", []string{"engineering-leads@acme-corp.com"}, []string{"cto@acme-corp.com"}, "Proposal: Database Performance Optimization Initiative", true, 5, 16},
}

// ago returns end moved back by whole days plus hours.
func ago(end time.Time, days, hours int) time.Time {
	return end.Add(-time.Duration(days*24+hours) * time.Hour)
}

// GitHubMock emits canned commits, pull requests and reviews.
type GitHubMock struct {
	repos []string
}

func NewGitHubMock(cfg internal.SourceConfig) *GitHubMock {
	return &GitHubMock{repos: cfg.Repos}
}

func (m *GitHubMock) Name() string { return GitHubName + mockSuffix }

func (m *GitHubMock) Validate(context.Context) error { return nil }

func (m *GitHubMock) Fetch(_ context.Context, start, end time.Time) ([]internal.Activity, error) {
	var out []internal.Activity
	keep := func(repo string, ts time.Time) bool {
		return (len(m.repos) == 0 || slices.Contains(m.repos, repo)) && within(ts, start, end)
	}

	for _, c := range mockCommits {
		ts := ago(end, c.daysAgo, 10)
		if !keep(c.repo, ts) {
			continue
		}
		out = append(out, internal.MustActivity(internal.ActivityParams{
			Timestamp:    ts,
			Title:        c.title,
			Description:  c.description,
			Source:       GitHubName,
			ActivityType: "commit",
			URL:          null.StringFrom(fmt.Sprintf("https://github.com/%s/commit/%s", c.repo, c.sha)),
			Metadata:     internal.Metadata{"repo": c.repo, "sha": c.sha, "additions": c.additions, "deletions": c.deletions},
		}))
	}
	for _, pr := range mockPRs {
		ts := ago(end, pr.daysAgo, 14)
		if !keep(pr.repo, ts) {
			continue
		}
		out = append(out, internal.MustActivity(internal.ActivityParams{
			Timestamp:    ts,
			Title:        pr.title,
			Description:  pr.description,
			Source:       GitHubName,
			ActivityType: "pr_created",
			URL:          null.StringFrom(fmt.Sprintf("https://github.com/%s/pull/%d", pr.repo, pr.number)),
			Metadata:     internal.Metadata{"repo": pr.repo, "number": pr.number, "merged": pr.merged},
		}))
	}
	for _, r := range mockReviews {
		ts := ago(end, r.daysAgo, 15)
		if !keep(r.repo, ts) {
			continue
		}
		out = append(out, internal.MustActivity(internal.ActivityParams{
			Timestamp:    ts,
			Title:        r.title,
			Description:  r.description,
			Source:       GitHubName,
			ActivityType: "pr_review",
			URL:          null.StringFrom(fmt.Sprintf("https://github.com/%s/pull/%d", r.repo, r.number)),
			Metadata:     internal.Metadata{"repo": r.repo, "number": r.number, "review_state": r.state},
		}))
	}
	return out, nil
}

// SlackMock emits canned channel messages. Channels filter by channel ID.
type SlackMock struct {
	channels []string
}

func NewSlackMock(cfg internal.SourceConfig) *SlackMock {
	return &SlackMock{channels: cfg.Channels}
}

func (m *SlackMock) Name() string { return SlackName + mockSuffix }

func (m *SlackMock) Validate(context.Context) error { return nil }

func (m *SlackMock) Fetch(_ context.Context, start, end time.Time) ([]internal.Activity, error) {
	var out []internal.Activity
	for _, msg := range mockMessages {
		if len(m.channels) > 0 && !slices.Contains(m.channels, msg.channelID) {
			continue
		}
		ts := ago(end, msg.daysAgo, 24-msg.hour)
		if !within(ts, start, end) {
			continue
		}
		out = append(out, internal.MustActivity(internal.ActivityParams{
			Timestamp:    ts,
			Title:        msg.title,
			Description:  msg.description,
			Source:       SlackName,
			ActivityType: "message",
			URL:          permalink(mockSlackDomain, msg.channelID, strconv.FormatInt(ts.Unix(), 10)+".000000"),
			Metadata:     internal.Metadata{"channel": msg.channel, "channel_id": msg.channelID, "is_thread": msg.isThread},
		}))
	}
	return out, nil
}

// EmailMock emits canned sent and received mail for the configured address.
type EmailMock struct {
	address string
}

func NewEmailMock(cfg internal.SourceConfig) *EmailMock {
	address := cfg.Email
	if address == "" {
		address = "user@example.com"
	}
	return &EmailMock{address: address}
}

func (m *EmailMock) Name() string { return EmailName + mockSuffix }

func (m *EmailMock) Validate(context.Context) error { return nil }

func (m *EmailMock) Fetch(_ context.Context, start, end time.Time) ([]internal.Activity, error) {
	var out []internal.Activity
	for _, mail := range mockMails {
		ts := ago(end, mail.daysAgo, 24-mail.hour)
		if !within(ts, start, end) {
			continue
		}
		folder, typ, from, to := "INBOX", "email_received", mail.from, []string{m.address}
		if mail.sent {
			folder, typ, from, to = "Sent", "email_sent", m.address, mail.to
		}
		out = append(out, internal.MustActivity(internal.ActivityParams{
			Timestamp:    ts,
			Title:        mail.title,
			Description:  mail.description,
			Source:       EmailName,
			ActivityType: typ,
			Metadata: internal.Metadata{
				"folder":          folder,
				"from":            from,
				"to":              to,
				"cc":              mail.cc,
				"subject":         mail.subject,
				"has_attachments": mail.hasAttachments,
			},
		}))
	}
	return out, nil
}
