// Package summarize turns a week of activities into short narratives, one per
// supported source.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/responses"

	"weeklysummary/internal"
	"weeklysummary/internal/aggregate"
	"weeklysummary/internal/client"
	"weeklysummary/internal/config"
	"weeklysummary/internal/prompt"
)

const defaultMaxOutputTokens = 500

// Summarizer returns narrative text keyed by source name. Sources without a
// narrative are absent from the map.
type Summarizer interface {
	Summarize(ctx context.Context, activities []internal.Activity, start, end string) map[string]string
}

// Live asks a language model for each narrative.
type Live struct {
	Client          client.Responder
	Logger          *slog.Logger
	MaxOutputTokens int64
}

func (l *Live) Summarize(ctx context.Context, activities []internal.Activity, start, end string) map[string]string {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxTokens := l.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxOutputTokens
	}

	summaries := make(map[string]string)
	for _, g := range aggregate.GroupBySource(activities) {
		if !prompt.Supports(g.Key) {
			continue
		}
		text, err := l.summarizeSource(ctx, g, start, end, maxTokens)
		if err != nil {
			logger.Warn("summary failed", "source", g.Key, "stage", "summarize", "error", err)
			continue
		}
		if text != "" {
			summaries[g.Key] = text
		}
	}
	return summaries
}

func (l *Live) summarizeSource(ctx context.Context, g aggregate.Group, start, end string, maxTokens int64) (string, error) {
	userPrompt, err := prompt.Render(g.Key, prompt.Data{
		Start:      start,
		End:        end,
		Activities: FormatActivities(g.Key, g.Activities),
	})
	if err != nil {
		return "", err
	}
	res, err := l.Client.GetResponse(ctx, &client.GetResponseInput{
		SystemPrompt:    prompt.System,
		History:         []responses.ResponseInputItemUnionParam{client.UserMessage(userPrompt)},
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

// FormatActivities lays out activities for a prompt: GitHub work grouped by
// repository and type, Slack messages grouped by channel.
func FormatActivities(source string, activities []internal.Activity) string {
	var lines []string
	switch source {
	case "github":
		for _, repo := range groupByMetadata(activities, "repo") {
			lines = append(lines, "", "Repository: "+repo.Key)
			for _, typ := range aggregate.GroupByType(repo.Activities) {
				lines = append(lines, fmt.Sprintf("  %s:", typ.Key))
				for _, a := range typ.Activities {
					lines = append(lines, fmt.Sprintf("    - %s: %s", a.Title(), a.Description()))
				}
			}
		}
	case "slack":
		for _, ch := range groupByMetadata(activities, "channel") {
			lines = append(lines, "", "#"+ch.Key+":")
			for _, a := range ch.Activities {
				lines = append(lines, fmt.Sprintf("  - %s: %s", a.Title(), a.Description()))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func groupByMetadata(activities []internal.Activity, key string) []aggregate.Group {
	var groups []aggregate.Group
	index := make(map[string]int)
	for _, a := range activities {
		k := a.Metadata().StringOr(key, "unknown")
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, aggregate.Group{Key: k})
		}
		groups[i].Activities = append(groups[i].Activities, a)
	}
	return groups
}

// Select picks the summarizer for mode. A nil Summarizer means summaries are
// disabled for the run.
func Select(mode string, hasMockSources bool, apiKey, model string, logger *slog.Logger) (Summarizer, error) {
	switch mode {
	case config.ModeOff:
		return nil, nil
	case config.ModeOffline:
		return Offline{}, nil
	case config.ModeLive:
		if apiKey == "" {
			return nil, errors.New("summary mode live requires an OpenAI API key")
		}
		return newLive(apiKey, model, logger)
	case config.ModeAuto, "":
		if hasMockSources {
			return Offline{}, nil
		}
		if apiKey == "" {
			return nil, nil
		}
		return newLive(apiKey, model, logger)
	default:
		return nil, fmt.Errorf("unknown summary mode %q", mode)
	}
}

func newLive(apiKey, model string, logger *slog.Logger) (*Live, error) {
	c, err := client.NewOpenAIClient(apiKey, model)
	if err != nil {
		return nil, err
	}
	return &Live{Client: c, Logger: logger}, nil
}
