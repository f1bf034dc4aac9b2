// Package prompt holds the instructions sent to the language model.
package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

var (
	//go:embed system.md
	system string
	//go:embed github.md
	githubPrompt string
	//go:embed slack.md
	slackPrompt string
)

// System is the shared system prompt for every summary.
var System = strings.TrimSpace(system)

var templates = map[string]*template.Template{
	"github": template.Must(template.New("github").Parse(githubPrompt)),
	"slack":  template.Must(template.New("slack").Parse(slackPrompt)),
}

// Data fills a source prompt.
type Data struct {
	Start      string
	End        string
	Activities string
}

// Supports reports whether a prompt exists for source.
func Supports(source string) bool {
	_, ok := templates[source]
	return ok
}

// Render builds the user prompt for source.
func Render(source string, data Data) (string, error) {
	tmpl, ok := templates[source]
	if !ok {
		return "", fmt.Errorf("no prompt for source %q", source)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
