package tools

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/soyeahso/matrix/internal/logging"
)

// IMAPConfig configures the IMAP unread-mail backend.
type IMAPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
	TLS      *tls.Config
}

// IMAPMail lists unread messages from an IMAP mailbox.
type IMAPMail struct {
	cfg IMAPConfig
	tz  *time.Location
	log *logging.Logger

	dial func(addr string, cfg *tls.Config) (*client.Client, error)
}

// NewIMAPMail creates an IMAP mail reader.
func NewIMAPMail(cfg IMAPConfig, tz *time.Location, log *logging.Logger) *IMAPMail {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if tz == nil {
		tz = time.Local
	}
	return &IMAPMail{cfg: cfg, tz: tz, log: log.Sub("tools.imap"), dial: client.DialTLS}
}

// UnreadEmails returns up to n unseen messages, newest first. The mailbox
// is opened read-only so nothing is marked as seen.
func (m *IMAPMail) UnreadEmails(ctx context.Context, n int) ([]EmailSummary, error) {
	if n <= 0 {
		return []EmailSummary{}, nil
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	c, err := m.dial(addr, m.cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer c.Logout()

	// go-imap v1 has no context support; a deadline bounds the whole exchange.
	if dl, ok := ctx.Deadline(); ok {
		c.Timeout = time.Until(dl)
	}

	if err := c.Login(m.cfg.Username, m.cfg.Password); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select(m.cfg.Mailbox, true); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", m.cfg.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	seqs, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("searching unseen: %w", err)
	}
	if len(seqs) == 0 {
		return []EmailSummary{}, nil
	}
	if len(seqs) > n {
		seqs = seqs[len(seqs)-n:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(seqs...)

	messages := make(chan *imap.Message, len(seqs))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid}, messages)
	}()

	var list []*imap.Message
	for msg := range messages {
		list = append(list, msg)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	out := make([]EmailSummary, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, m.summarize(list[i]))
	}
	m.log.Debug().Int("count", len(out)).Str("mailbox", m.cfg.Mailbox).Msg("listed unread messages")
	return out, nil
}

func (m *IMAPMail) summarize(msg *imap.Message) EmailSummary {
	s := EmailSummary{ID: strconv.FormatUint(uint64(msg.Uid), 10)}
	if env := msg.Envelope; env != nil {
		s.Subject = env.Subject
		s.Snippet = env.Subject
		if len(env.From) > 0 {
			s.From = env.From[0].Address()
		}
		if !env.Date.IsZero() {
			s.Time = env.Date.In(m.tz).Format(timeLayout)
		}
	}
	return s
}
