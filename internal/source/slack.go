package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gopkg.in/guregu/null.v3"

	"weeklysummary/internal"
)

const (
	SlackName        = "slack"
	slackAPIBaseURL  = "https://slack.com/api"
	slackPreviewSize = 200
	slackHistorySize = "1000"
)

// Slack reports messages the authenticated user posted in their channels.
type Slack struct {
	baseURL    string
	token      string
	channels   []string
	httpClient HTTPClient
	logger     *slog.Logger

	userID string
}

func NewSlack(cfg internal.SourceConfig, env Env) *Slack {
	env = env.withDefaults()
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = slackAPIBaseURL
	}
	return &Slack{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      cfg.Token,
		channels:   cfg.Channels,
		httpClient: env.HTTPClient,
		logger:     env.Logger.With("source", SlackName),
	}
}

func (s *Slack) Name() string { return SlackName }

// Validate authenticates the token and records the user it belongs to.
func (s *Slack) Validate(ctx context.Context) error {
	if s.token == "" {
		return errors.New("slack token is required")
	}
	var res struct {
		slackResponse
		UserID string `json:"user_id"`
	}
	if err := s.call(ctx, "auth.test", nil, &res); err != nil {
		return fmt.Errorf("invalid slack token: %w", err)
	}
	s.userID = res.UserID
	return nil
}

func (s *Slack) Fetch(ctx context.Context, start, end time.Time) ([]internal.Activity, error) {
	if s.userID == "" {
		if err := s.Validate(ctx); err != nil {
			return nil, err
		}
	}

	domain := s.teamDomain(ctx)
	var activities []internal.Activity
	for _, ch := range s.conversations(ctx) {
		activities = append(activities, s.history(ctx, ch, domain, start, end)...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return activities, nil
}

// conversations resolves the configured channel IDs, or lists every channel
// and direct message the user belongs to.
func (s *Slack) conversations(ctx context.Context) []slackChannel {
	var channels []slackChannel
	if len(s.channels) > 0 {
		for _, id := range s.channels {
			var res struct {
				slackResponse
				Channel slackChannel `json:"channel"`
			}
			if err := s.call(ctx, "conversations.info", url.Values{"channel": {id}}, &res); err != nil {
				s.logger.Warn("skipping channel", "channel", id, "error", err)
				continue
			}
			channels = append(channels, res.Channel)
		}
		return channels
	}

	for _, types := range []string{"public_channel,private_channel", "im"} {
		var res struct {
			slackResponse
			Channels []slackChannel `json:"channels"`
		}
		if err := s.call(ctx, "conversations.list", url.Values{"types": {types}}, &res); err != nil {
			s.logger.Warn("cannot list conversations", "types", types, "error", err)
			continue
		}
		channels = append(channels, res.Channels...)
	}
	return channels
}

func (s *Slack) history(ctx context.Context, ch slackChannel, domain string, start, end time.Time) []internal.Activity {
	name := ch.Name
	if name == "" {
		name = ch.ID
	}
	params := url.Values{
		"channel":   {ch.ID},
		"oldest":    {strconv.FormatInt(start.Unix(), 10)},
		"latest":    {strconv.FormatInt(end.Unix(), 10)},
		"inclusive": {"true"},
		"limit":     {slackHistorySize},
	}
	var res struct {
		slackResponse
		Messages []slackMessage `json:"messages"`
	}
	if err := s.call(ctx, "conversations.history", params, &res); err != nil {
		s.logger.Warn("skipping channel", "channel", name, "error", err)
		return nil
	}

	var activities []internal.Activity
	for _, m := range res.Messages {
		if m.User != s.userID {
			continue
		}
		ts, err := parseSlackTS(m.TS)
		if err != nil {
			s.logger.Warn("dropping message", "channel", name, "ts", m.TS, "error", err)
			continue
		}
		if !within(ts, start, end) {
			continue
		}
		title := "Message in #" + name
		if m.ThreadTS != "" && m.ThreadTS != m.TS {
			title += " (thread reply)"
		}
		a, err := internal.NewActivity(internal.ActivityParams{
			Timestamp:    ts,
			Title:        title,
			Description:  truncate(m.Text, slackPreviewSize, ""),
			Source:       SlackName,
			ActivityType: "message",
			URL:          permalink(domain, ch.ID, m.TS),
			Metadata: internal.Metadata{
				"channel":    name,
				"channel_id": ch.ID,
				"is_thread":  m.ThreadTS != "",
			},
		})
		if err != nil {
			s.logger.Warn("dropping message", "channel", name, "ts", m.TS, "error", err)
			continue
		}
		activities = append(activities, a)
	}
	return activities
}

// teamDomain returns the workspace subdomain, or "" when it cannot be read.
func (s *Slack) teamDomain(ctx context.Context) string {
	var res struct {
		slackResponse
		Team struct {
			Domain string `json:"domain"`
		} `json:"team"`
	}
	if err := s.call(ctx, "team.info", nil, &res); err != nil {
		s.logger.Warn("cannot resolve workspace domain, messages will have no links", "error", err)
		return ""
	}
	return res.Team.Domain
}

// call invokes a Web API method. The response must embed slackResponse.
func (s *Slack) call(ctx context.Context, method string, params url.Values, result interface{ apiError() error }) error {
	endpoint := s.baseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", method, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return result.apiError()
}

func permalink(domain, channelID, ts string) null.String {
	if domain == "" {
		return null.String{}
	}
	return null.StringFrom(fmt.Sprintf("https://%s.slack.com/archives/%s/p%s",
		domain, channelID, strings.ReplaceAll(ts, ".", "")))
}

// parseSlackTS converts "1704103200.000100" into a UTC time.
func parseSlackTS(ts string) (time.Time, error) {
	secs, frac, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid message timestamp %q", ts)
	}
	var micros int64
	if frac != "" {
		if micros, err = strconv.ParseInt(frac, 10, 64); err != nil {
			return time.Time{}, fmt.Errorf("invalid message timestamp %q", ts)
		}
	}
	return time.Unix(sec, micros*int64(time.Microsecond)).UTC(), nil
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (r *slackResponse) apiError() error {
	if r.OK {
		return nil
	}
	if r.Error == "" {
		return errors.New("slack API call failed")
	}
	return fmt.Errorf("slack API error: %s", r.Error)
}

type slackChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type slackMessage struct {
	User     string `json:"user"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
}
