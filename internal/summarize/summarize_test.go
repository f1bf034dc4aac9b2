package summarize

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weeklysummary/internal"
	"weeklysummary/internal/client"
)

type fakeResponder struct {
	answers map[string]string
	err     error
	prompts []string
}

func (f *fakeResponder) GetResponse(_ context.Context, req *client.GetResponseInput) (*client.GetResponseOutput, error) {
	body := req.History[0].OfMessage.Content.OfString.Value
	f.prompts = append(f.prompts, body)
	if f.err != nil {
		return nil, f.err
	}
	for marker, answer := range f.answers {
		if strings.Contains(body, marker) {
			return &client.GetResponseOutput{Answer: answer}, nil
		}
	}
	return &client.GetResponseOutput{}, nil
}

func activity(hour int, source, typ, title string, md internal.Metadata) internal.Activity {
	return internal.MustActivity(internal.ActivityParams{
		Timestamp:    time.Date(2024, 1, 2, hour, 0, 0, 0, time.UTC),
		Title:        title,
		Description:  "desc " + title,
		Source:       source,
		ActivityType: typ,
		Metadata:     md,
	})
}

func sample() []internal.Activity {
	return []internal.Activity{
		activity(9, "github", "commit", "Commit A", internal.Metadata{"repo": "acme/api"}),
		activity(10, "slack", "message", "Msg", internal.Metadata{"channel": "general"}),
		activity(11, "github", "pr_created", "PR B", internal.Metadata{"repo": "acme/api"}),
		activity(12, "github", "commit", "Commit C", nil),
		activity(13, "email", "email_sent", "Mail", nil),
	}
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFormatActivities_GitHub(t *testing.T) {
	out := FormatActivities("github", sample()[:4])

	assert.Equal(t, strings.Join([]string{
		"",
		"Repository: acme/api",
		"  commit:",
		"    - Commit A: desc Commit A",
		"  pr_created:",
		"    - PR B: desc PR B",
		"",
		"Repository: unknown",
		"  commit:",
		"    - Commit C: desc Commit C",
	}, "\n"), out)
}

func TestFormatActivities_Slack(t *testing.T) {
	out := FormatActivities("slack", []internal.Activity{
		activity(9, "slack", "message", "One", internal.Metadata{"channel": "general"}),
		activity(10, "slack", "message", "Two", nil),
	})

	assert.Equal(t, "\n#general:\n  - One: desc One\n\n#unknown:\n  - Two: desc Two", out)
}

func TestLive_Summarize(t *testing.T) {
	f := &fakeResponder{answers: map[string]string{
		"GitHub activities": "Built things.",
		"Slack discussions": "Talked about things.",
	}}
	l := &Live{Client: f, Logger: quiet()}

	got := l.Summarize(context.Background(), sample(), "2024-01-01", "2024-01-07")

	assert.Equal(t, map[string]string{"github": "Built things.", "slack": "Talked about things."}, got)
	require.Len(t, f.prompts, 2)
	assert.Contains(t, f.prompts[0], "from 2024-01-01 to 2024-01-07")
	assert.Contains(t, f.prompts[0], "Repository: acme/api")
}

func TestLive_ErrorsDropSummaries(t *testing.T) {
	l := &Live{Client: &fakeResponder{err: errors.New("rate limited")}, Logger: quiet()}

	assert.Empty(t, l.Summarize(context.Background(), sample(), "s", "e"))
}

func TestLive_EmptyAnswerOmitted(t *testing.T) {
	l := &Live{Client: &fakeResponder{}, Logger: quiet()}

	assert.Empty(t, l.Summarize(context.Background(), sample(), "s", "e"))
}

func TestOffline_Summarize(t *testing.T) {
	got := Offline{}.Summarize(context.Background(), sample(), "s", "e")

	require.Len(t, got, 2)
	assert.Contains(t, got["github"], "Overall, 3 activities were completed")
	assert.Contains(t, got["github"], "40% improvement")
	assert.Contains(t, got["slack"], "With 1 messages across multiple channels")
}

func TestOffline_NoActivities(t *testing.T) {
	assert.Empty(t, Offline{}.Summarize(context.Background(), nil, "s", "e"))
}

func TestSelect(t *testing.T) {
	s, err := Select("off", true, "sk", "", quiet())
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Select("offline", false, "", "", quiet())
	require.NoError(t, err)
	assert.IsType(t, Offline{}, s)

	s, err = Select("auto", true, "sk", "", quiet())
	require.NoError(t, err)
	assert.IsType(t, Offline{}, s)

	s, err = Select("auto", false, "sk", "", quiet())
	require.NoError(t, err)
	assert.IsType(t, &Live{}, s)

	s, err = Select("auto", false, "", "", quiet())
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = Select("live", false, "", "", quiet())
	assert.Error(t, err)

	_, err = Select("verbose", false, "", "", quiet())
	assert.Error(t, err)
}
