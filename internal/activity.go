package internal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/guregu/null.v3"
)

// ErrInvalidActivity is returned when an activity misses a required field.
var ErrInvalidActivity = errors.New("invalid activity")

// Source fetches activities from one external service.
type Source interface {
	// Name is the stable identifier the source was registered under.
	Name() string
	// Validate confirms credentials and reachability before any fetch.
	Validate(ctx context.Context) error
	// Fetch returns activities with start <= timestamp <= end. Failures on
	// individual sub-resources are skipped, not returned.
	Fetch(ctx context.Context, start, end time.Time) ([]Activity, error)
}

// ActivityParams carries the fields used to build an Activity.
type ActivityParams struct {
	Timestamp    time.Time
	Title        string
	Description  string
	Source       string
	ActivityType string
	URL          null.String
	Metadata     Metadata
}

// Activity is a single normalized event from any source. It is immutable:
// fields are only readable through accessors and metadata is copied in and
// out.
type Activity struct {
	timestamp    time.Time
	title        string
	description  string
	source       string
	activityType string
	url          null.String
	metadata     Metadata
}

// NewActivity validates p and returns the activity.
func NewActivity(p ActivityParams) (Activity, error) {
	if p.Timestamp.IsZero() {
		return Activity{}, fmt.Errorf("%w: timestamp is required", ErrInvalidActivity)
	}
	if p.Source == "" {
		return Activity{}, fmt.Errorf("%w: source is required", ErrInvalidActivity)
	}
	if p.ActivityType == "" {
		return Activity{}, fmt.Errorf("%w: activity type is required", ErrInvalidActivity)
	}
	return Activity{
		timestamp:    p.Timestamp,
		title:        p.Title,
		description:  p.Description,
		source:       p.Source,
		activityType: p.ActivityType,
		url:          p.URL,
		metadata:     p.Metadata.clone(),
	}, nil
}

// MustActivity is NewActivity for fixed data; it panics on invalid input.
func MustActivity(p ActivityParams) Activity {
	a, err := NewActivity(p)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Activity) Timestamp() time.Time { return a.timestamp }
func (a Activity) Title() string { return a.title }
func (a Activity) Description() string { return a.description }
func (a Activity) Source() string { return a.source }
func (a Activity) ActivityType() string { return a.activityType }
func (a Activity) URL() null.String { return a.url }
func (a Activity) Metadata() Metadata { return a.metadata.clone() }

// Before orders activities by timestamp.
func (a Activity) Before(b Activity) bool {
	return a.timestamp.Before(b.timestamp)
}

// Day is the calendar day of the timestamp in its own location.
func (a Activity) Day() string {
	return a.timestamp.Format(time.DateOnly)
}

// Within reports whether start <= timestamp <= end.
func (a Activity) Within(start, end time.Time) bool {
	return !a.timestamp.Before(start) && !a.timestamp.After(end)
}

func (a Activity) String() string {
	return fmt.Sprintf("%s/%s %s %q", a.source, a.activityType, a.timestamp.Format(time.RFC3339), a.title)
}

// Metadata is a source specific attribute bag without a fixed schema.
// Lookups tolerate missing keys and unexpected types.
type Metadata map[string]any

// clone copies m along with any nested lists and maps.
func (m Metadata) clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []int:
		return append([]int(nil), t...)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case Metadata:
		return t.clone()
	case map[string]any:
		return map[string]any(Metadata(t).clone())
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, e := range t {
			out[k] = e
		}
		return out
	default:
		return v
	}
}

// String returns the value at key rendered as text, or "" when absent.
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// StringOr is String with a fallback for missing or empty values.
func (m Metadata) StringOr(key, fallback string) string {
	if s := m.String(key); s != "" {
		return s
	}
	return fallback
}

func (m Metadata) Int(key string) (int, bool) {
	switch t := m[key].(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(t)
		return n, err == nil
	default:
		return 0, false
	}
}

func (m Metadata) Bool(key string) bool {
	b, _ := m[key].(bool)
	return b
}

// Strings returns a copy of a string list value.
func (m Metadata) Strings(key string) []string {
	switch t := m[key].(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
