package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/quotedprintable"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"weeklysummary/internal"
)

const (
	EmailName          = "email"
	defaultIMAPPort    = 993
	emailPreviewSize   = 200
	emailPreviewSuffix = "..."
)

var (
	defaultFolders = []string{"INBOX", "Sent"}
	sentFolders    = map[string]bool{"sent": true, "sent items": true, "sent mail": true}
)

// Email reports mail sent and received within the window, read over IMAP.
type Email struct {
	host     string
	port     int
	address  string
	password string
	useTLS   bool
	folders  []string
	logger   *slog.Logger
}

func NewEmail(cfg internal.SourceConfig, env Env) *Email {
	env = env.withDefaults()
	port := cfg.Port
	if port == 0 {
		port = defaultIMAPPort
	}
	folders := cfg.Folders
	if len(folders) == 0 {
		folders = defaultFolders
	}
	return &Email{
		host:     cfg.Host,
		port:     port,
		address:  cfg.Email,
		password: cfg.Password,
		useTLS:   cfg.SSL(),
		folders:  folders,
		logger:   env.Logger.With("source", EmailName),
	}
}

func (e *Email) Name() string { return EmailName }

// Validate checks the settings and logs in once.
func (e *Email) Validate(ctx context.Context) error {
	switch {
	case e.host == "":
		return errors.New("imap host is required")
	case e.address == "":
		return errors.New("email address is required")
	case e.password == "":
		return errors.New("email password is required")
	}
	c, err := e.login(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to imap server: %w", err)
	}
	_ = c.Logout()
	return nil
}

func (e *Email) Fetch(ctx context.Context, start, end time.Time) ([]internal.Activity, error) {
	c, err := e.login(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	var activities []internal.Activity
	for _, folder := range e.folders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := e.folder(c, folder, start, end)
		if err != nil {
			e.logger.Warn("skipping folder", "folder", folder, "error", err)
			continue
		}
		activities = append(activities, items...)
	}
	return activities, nil
}

func (e *Email) login(ctx context.Context) (*client.Client, error) {
	addr := net.JoinHostPort(e.host, strconv.Itoa(e.port))
	var (
		c   *client.Client
		err error
	)
	if e.useTLS {
		c, err = client.DialTLS(addr, nil)
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		c.Timeout = time.Until(deadline)
	}
	if err := c.Login(e.address, e.password); err != nil {
		_ = c.Logout()
		return nil, err
	}
	return c, nil
}

func (e *Email) folder(c *client.Client, folder string, start, end time.Time) ([]internal.Activity, error) {
	if _, err := c.Select(folder, true); err != nil {
		return nil, err
	}

	// SENTSINCE and SENTBEFORE compare dates only; the exact bound is applied
	// to the envelope date below.
	criteria := imap.NewSearchCriteria()
	criteria.SentSince = dateOf(start)
	criteria.SentBefore = dateOf(end).AddDate(0, 0, 1)
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	messages, err := collectMessages(c, seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchBodyStructure, imap.FetchInternalDate})
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	sent := sentFolders[strings.ToLower(folder)]
	var activities []internal.Activity
	for _, msg := range messages {
		if msg.Envelope == nil {
			continue
		}
		ts := msg.Envelope.Date
		if ts.IsZero() {
			ts = msg.InternalDate
		}
		if !within(ts, start, end) {
			continue
		}
		a, err := internal.NewActivity(e.convert(c, msg, folder, sent, ts))
		if err != nil {
			e.logger.Warn("dropping message", "folder", folder, "seq", msg.SeqNum, "error", err)
			continue
		}
		activities = append(activities, a)
	}
	return activities, nil
}

func (e *Email) convert(c *client.Client, msg *imap.Message, folder string, sent bool, ts time.Time) internal.ActivityParams {
	env := msg.Envelope
	from := addresses(env.From)
	to := addresses(env.To)

	var title, typ string
	if sent {
		title = "Sent email to " + strings.Join(to, ", ")
		typ = "email_sent"
	} else {
		title = "Received email from " + strings.Join(from, ", ")
		typ = "email_received"
	}

	preview, err := e.preview(c, msg)
	if err != nil {
		e.logger.Warn("cannot read message body", "folder", folder, "seq", msg.SeqNum, "error", err)
	}

	return internal.ActivityParams{
		Timestamp:    ts,
		Title:        title + ": " + env.Subject,
		Description:  truncate(preview, emailPreviewSize, emailPreviewSuffix),
		Source:       EmailName,
		ActivityType: typ,
		Metadata: internal.Metadata{
			"folder":          folder,
			"from":            strings.Join(from, ", "),
			"to":              to,
			"cc":              addresses(env.Cc),
			"subject":         env.Subject,
			"has_attachments": hasAttachments(msg.BodyStructure),
		},
	}
}

// preview fetches the first plain-text part of msg and decodes it.
func (e *Email) preview(c *client.Client, msg *imap.Message) (string, error) {
	section, encoding, ok := textSection(msg.BodyStructure)
	if !ok {
		return "", nil
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(msg.SeqNum)
	fetched, err := collectMessages(c, seqset, []imap.FetchItem{section.FetchItem()})
	if err != nil {
		return "", err
	}
	if len(fetched) == 0 {
		return "", nil
	}
	body := fetched[0].GetBody(section)
	if body == nil {
		return "", nil
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(decodeBody(raw, encoding)), nil
}

func collectMessages(c *client.Client, seqset *imap.SeqSet, items []imap.FetchItem) ([]*imap.Message, error) {
	ch := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, ch)
	}()

	var messages []*imap.Message
	for msg := range ch {
		messages = append(messages, msg)
	}
	return messages, <-done
}

// textSection locates the first text/plain part. Single-part messages use
// the TEXT section directly.
func textSection(bs *imap.BodyStructure) (*imap.BodySectionName, string, bool) {
	if bs == nil {
		return nil, "", false
	}
	if !strings.EqualFold(bs.MIMEType, "multipart") {
		if !strings.EqualFold(bs.MIMEType, "text") {
			return nil, "", false
		}
		return &imap.BodySectionName{
			BodyPartName: imap.BodyPartName{Specifier: imap.TextSpecifier},
			Peek:         true,
		}, bs.Encoding, true
	}
	path, part := findPlainPart(bs, nil)
	if part == nil {
		return nil, "", false
	}
	return &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Path: path},
		Peek:         true,
	}, part.Encoding, true
}

func findPlainPart(bs *imap.BodyStructure, path []int) ([]int, *imap.BodyStructure) {
	for i, part := range bs.Parts {
		p := append(append([]int(nil), path...), i+1)
		if strings.EqualFold(part.MIMEType, "multipart") {
			if found, fp := findPlainPart(part, p); fp != nil {
				return found, fp
			}
			continue
		}
		if strings.EqualFold(part.MIMEType, "text") && strings.EqualFold(part.MIMESubType, "plain") &&
			!strings.EqualFold(part.Disposition, "attachment") {
			return p, part
		}
	}
	return nil, nil
}

func hasAttachments(bs *imap.BodyStructure) bool {
	if bs == nil {
		return false
	}
	if strings.EqualFold(bs.Disposition, "attachment") {
		return true
	}
	for _, part := range bs.Parts {
		if hasAttachments(part) {
			return true
		}
	}
	return false
}

func decodeBody(raw []byte, encoding string) string {
	switch strings.ToLower(encoding) {
	case "quoted-printable":
		decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(raw)))
		if err != nil && len(decoded) == 0 {
			return string(raw)
		}
		return string(decoded)
	case "base64":
		compact := strings.Join(strings.Fields(string(raw)), "")
		decoded, err := base64.StdEncoding.DecodeString(compact)
		if err != nil {
			return ""
		}
		return string(decoded)
	default:
		return string(raw)
	}
}

func addresses(list []*imap.Address) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		if addr := a.Address(); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
