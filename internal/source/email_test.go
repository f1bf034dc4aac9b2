package source

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weeklysummary/internal"
)

// startIMAP serves the in-memory backend, whose INBOX holds one message
// dated 2016-05-11 from contact@example.org.
func startIMAP(t *testing.T) int {
	t.Helper()
	s := server.New(memory.New())
	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() { _ = s.Close() })

	return l.Addr().(*net.TCPAddr).Port
}

func newTestEmail(port int, password string) *Email {
	return NewEmail(internal.SourceConfig{
		Host:     "127.0.0.1",
		Port:     port,
		Email:    "username",
		Password: password,
		UseSSL:   boolPtr(false),
		Folders:  []string{"INBOX", "Archive"},
	}, quietEnv())
}

func TestEmail_Fetch(t *testing.T) {
	e := newTestEmail(startIMAP(t), "password")
	require.NoError(t, e.Validate(context.Background()))

	start := time.Date(2016, 5, 9, 0, 0, 0, 0, time.UTC)
	end := time.Date(2016, 5, 15, 23, 59, 59, 0, time.UTC)
	activities, err := e.Fetch(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, activities, 1)

	a := activities[0]
	assert.Equal(t, "email", a.Source())
	assert.Equal(t, "email_received", a.ActivityType())
	assert.Equal(t, "Received email from contact@example.org: A little message, just for you", a.Title())
	assert.Contains(t, a.Description(), "Hi there")
	assert.True(t, a.Timestamp().Equal(time.Date(2016, 5, 11, 14, 31, 59, 0, time.UTC)))
	assert.False(t, a.URL().Valid)

	md := a.Metadata()
	assert.Equal(t, "INBOX", md.StringOr("folder", ""))
	assert.Equal(t, "contact@example.org", md.StringOr("from", ""))
	assert.Equal(t, []string{"contact@example.org"}, md.Strings("to"))
	assert.False(t, md.Bool("has_attachments"))
}

func TestEmail_FetchOutsideWindow(t *testing.T) {
	e := newTestEmail(startIMAP(t), "password")

	activities, err := e.Fetch(context.Background(), weekStart, weekEnd)
	require.NoError(t, err)
	assert.Empty(t, activities)
}

func TestEmail_ValidateRejectsBadPassword(t *testing.T) {
	e := newTestEmail(startIMAP(t), "wrong")

	assert.Error(t, e.Validate(context.Background()))
}

func TestEmail_ValidateRequiresSettings(t *testing.T) {
	e := NewEmail(internal.SourceConfig{Host: "imap.example.com"}, quietEnv())

	assert.EqualError(t, e.Validate(context.Background()), "email address is required")
	assert.Equal(t, 993, e.port)
	assert.Equal(t, []string{"INBOX", "Sent"}, e.folders)
	assert.True(t, e.useTLS)
}

func TestTextSection(t *testing.T) {
	bs := &imap.BodyStructure{
		MIMEType: "multipart", MIMESubType: "mixed",
		Parts: []*imap.BodyStructure{
			{
				MIMEType: "multipart", MIMESubType: "alternative",
				Parts: []*imap.BodyStructure{
					{MIMEType: "text", MIMESubType: "html"},
					{MIMEType: "text", MIMESubType: "plain", Encoding: "quoted-printable"},
				},
			},
			{MIMEType: "application", MIMESubType: "pdf", Disposition: "attachment"},
		},
	}

	section, encoding, ok := textSection(bs)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, section.Path)
	assert.Equal(t, "quoted-printable", encoding)
	assert.True(t, hasAttachments(bs))

	_, _, ok = textSection(&imap.BodyStructure{MIMEType: "image", MIMESubType: "png"})
	assert.False(t, ok)
}

func TestDecodeBody(t *testing.T) {
	assert.Equal(t, "café time", decodeBody([]byte("caf=C3=A9 time"), "QUOTED-PRINTABLE"))
	assert.Equal(t, "hello", decodeBody([]byte("aGVs\r\nbG8="), "base64"))
	assert.Equal(t, "plain", decodeBody([]byte("plain"), "7bit"))
}
