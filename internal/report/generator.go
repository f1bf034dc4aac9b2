// Package report renders aggregated activities as a Markdown document with
// Hugo style front matter.
package report

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"weeklysummary/internal"
	"weeklysummary/internal/aggregate"
	"weeklysummary/internal/util"
)

// DefaultPrefix names generated files: <prefix>_<start>_to_<end>.md.
const DefaultPrefix = "weekly-summary"

const (
	reportTitle      = "Weekly Summary"
	longDateLayout   = "January 02, 2006"
	dayHeadingLayout = "Monday, January 02, 2006"
	generatedLayout  = "January 02, 2006 at 03:04 PM"
	entryTimeLayout  = "03:04 PM"
)

// narratives lists the summary keys the report knows how to present, in
// display order. Other keys are ignored.
var narratives = []struct {
	source  string
	heading string
}{
	{"github", "Development Work"},
	{"slack", "Team Discussions & Collaboration"},
}

// Generator writes reports under OutputDir.
type Generator struct {
	OutputDir string
	Prefix    string
	Draft     bool
	// Now stamps the generation time. Fix it to get byte-identical output.
	Now func() time.Time
}

// NewGenerator returns a Generator with default naming and the wall clock.
func NewGenerator(outputDir string) *Generator {
	return &Generator{
		OutputDir: outputDir,
		Prefix:    DefaultPrefix,
		Now:       time.Now,
	}
}

// Input is everything a report is built from.
type Input struct {
	Result aggregate.Result
	// Summaries maps a source name to narrative text. May be nil.
	Summaries map[string]string
	// Output overrides the derived file name.
	Output string
}

// FileName resolves the output file name for in.
func (g *Generator) FileName(in Input) string {
	if in.Output != "" {
		return in.Output
	}
	prefix := g.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s_%s_to_%s.md",
		prefix, in.Result.Start.Format(time.DateOnly), in.Result.End.Format(time.DateOnly))
}

// Generate renders the report and writes it to disk, returning its path.
func (g *Generator) Generate(in Input) (string, error) {
	var buf bytes.Buffer
	if err := g.Render(&buf, in); err != nil {
		return "", err
	}
	path := filepath.Join(g.OutputDir, g.FileName(in))
	if err := util.WriteFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// Render writes the Markdown document for in to w.
func (g *Generator) Render(w io.Writer, in Input) error {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	r := renderer{
		res:   in.Result,
		title: cases.Title(language.English),
	}

	r.frontMatter(g.Draft)
	r.header(now())
	r.narrative(in.Summaries)
	r.statistics()
	r.bySource()
	r.timeline()

	_, err := io.WriteString(w, strings.Join(r.lines, "\n"))
	return err
}

type renderer struct {
	res   aggregate.Result
	title cases.Caser
	lines []string
}

func (r *renderer) add(lines ...string) {
	r.lines = append(r.lines, lines...)
}

func (r *renderer) addf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *renderer) heading() string {
	return fmt.Sprintf("%s: %s - %s", reportTitle,
		r.res.Start.Format(longDateLayout), r.res.End.Format(longDateLayout))
}

func (r *renderer) frontMatter(draft bool) {
	r.add("---")
	r.addf("title: %q", r.heading())
	r.addf("date: %s", r.res.Start.Format(time.DateOnly))
	r.addf("endDate: %s", r.res.End.Format(time.DateOnly))
	r.addf("totalActivities: %d", r.res.Total())
	r.add("sources:")
	for _, g := range r.res.BySource {
		r.addf("  %s: %d", g.Key, len(g.Activities))
	}
	r.addf("draft: %t", draft)
	r.add("---", "")
}

func (r *renderer) header(generated time.Time) {
	r.addf("# %s", r.heading())
	r.add("")
	r.addf("*Generated on %s*", generated.Format(generatedLayout))
	r.add("")
}

func (r *renderer) narrative(summaries map[string]string) {
	if len(summaries) == 0 {
		return
	}
	r.add("## 📝 Summary", "")
	for _, n := range narratives {
		text := summaries[n.source]
		if text == "" {
			continue
		}
		r.addf("### %s", n.heading)
		r.add("", text, "")
	}
	r.add("---", "")
}

func (r *renderer) statistics() {
	r.add("## 📊 Activity Summary", "")
	r.addf("**Total Activities:** %d", r.res.Total())
	r.add("")
	for _, g := range r.res.BySource {
		r.addf("- **%s:** %d activities", r.title.String(g.Key), len(g.Activities))
	}
	r.add("")
}

func (r *renderer) bySource() {
	r.add("## Activities by Source", "")
	for _, src := range r.res.BySource {
		r.addf("### %s", r.title.String(src.Key))
		r.add("")
		for _, typ := range aggregate.GroupByType(src.Activities) {
			r.addf("#### %s (%d)", r.title.String(strings.ReplaceAll(typ.Key, "_", " ")), len(typ.Activities))
			r.add("")
			for _, a := range typ.Activities {
				r.add(formatActivity(a, false))
			}
			r.add("")
		}
	}
}

func (r *renderer) timeline() {
	r.add("## Timeline", "")
	for _, day := range r.res.ByDay {
		r.addf("### %s", dayHeading(day.Key))
		r.add("")
		for _, a := range day.Activities {
			r.add(formatActivity(a, true))
		}
		r.add("")
	}
}

func dayHeading(key string) string {
	day, err := time.Parse(time.DateOnly, key)
	if err != nil {
		return key
	}
	return day.Format(dayHeadingLayout)
}

// formatActivity renders one list entry, with the description quoted and
// indented underneath.
func formatActivity(a internal.Activity, withSource bool) string {
	parts := []string{fmt.Sprintf("- **%s**", a.Timestamp().Format(entryTimeLayout))}
	if withSource {
		parts = append(parts, "["+a.Source()+"]")
	}
	if url := a.URL(); url.Valid {
		parts = append(parts, fmt.Sprintf("[%s](%s)", a.Title(), url.String))
	} else {
		parts = append(parts, a.Title())
	}
	line := strings.Join(parts, " ")

	var quoted []string
	for _, l := range strings.Split(a.Description(), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			quoted = append(quoted, "> "+l)
		}
	}
	if len(quoted) > 0 {
		line += "\n  " + strings.Join(quoted, "\n  ")
	}
	return line
}
