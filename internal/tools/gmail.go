package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"

	"github.com/soyeahso/matrix/internal/logging"
)

// EmailSummary is what the assistant sees of an unread message.
type EmailSummary struct {
	ID      string `json:"id"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject,omitempty"`
	Snippet string `json:"snippet"`
	Time    string `json:"time"`
}

// SentMessage identifies a message accepted for delivery.
type SentMessage struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId,omitempty"`
	LabelIDs []string `json:"labelIds,omitempty"`
}

// Gmail reads and sends mail for the authorized user.
type Gmail struct {
	svc *gmail.Service
	tz  *time.Location
	log *logging.Logger
}

// NewGmail wraps a Gmail service. Message times are rendered in tz.
func NewGmail(svc *gmail.Service, tz *time.Location, log *logging.Logger) *Gmail {
	if tz == nil {
		tz = time.Local
	}
	return &Gmail{svc: svc, tz: tz, log: log.Sub("tools.gmail")}
}

// UnreadEmails lists up to n unread messages, fetching their details
// concurrently. Results keep the order Gmail listed them in.
func (g *Gmail) UnreadEmails(ctx context.Context, n int) ([]EmailSummary, error) {
	if n <= 0 {
		return []EmailSummary{}, nil
	}

	list, err := g.svc.Users.Messages.List("me").
		LabelIds("UNREAD").
		MaxResults(int64(n)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing unread messages: %w", err)
	}

	ids := make([]string, 0, len(list.Messages))
	for _, m := range list.Messages {
		ids = append(ids, m.Id)
	}
	g.log.Debug().Int("count", len(ids)).Msg("fetching unread messages")

	return fetchAll(ctx, ids, n, func(ctx context.Context, id string) (EmailSummary, error) {
		msg, err := g.svc.Users.Messages.Get("me", id).
			Format("metadata").
			MetadataHeaders("From", "Subject").
			Context(ctx).
			Do()
		if err != nil {
			return EmailSummary{}, fmt.Errorf("fetching message %s: %w", id, err)
		}
		return g.summarize(msg), nil
	})
}

func (g *Gmail) summarize(msg *gmail.Message) EmailSummary {
	s := EmailSummary{
		ID:      msg.Id,
		Snippet: msg.Snippet,
		Time:    time.UnixMilli(msg.InternalDate).In(g.tz).Format(timeLayout),
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "From":
				s.From = h.Value
			case "Subject":
				s.Subject = h.Value
			}
		}
	}
	return s
}

// SendEmail sends a plain-text message from the authorized user.
func (g *Gmail) SendEmail(ctx context.Context, to, subject, body string) (*SentMessage, error) {
	raw, err := buildMessage(to, subject, body)
	if err != nil {
		return nil, err
	}
	sent, err := g.svc.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}

	g.log.Info().Str("to", to).Str("id", sent.Id).Msg("email sent")
	return &SentMessage{ID: sent.Id, ThreadID: sent.ThreadId, LabelIDs: sent.LabelIds}, nil
}

// buildMessage renders an RFC 5322 message with a UTF-8 text body. The
// recipient must be a single address on one line.
func buildMessage(to, subject, body string) (string, error) {
	to = strings.TrimSpace(to)
	if strings.ContainsAny(to, "\r\n") {
		return "", fmt.Errorf("invalid recipient %q: line break in address", to)
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return "", fmt.Errorf("invalid recipient %q: %w", to, err)
	}

	var b strings.Builder
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String(), nil
}

// fetchAll runs fetch for every id with at most limit in flight and
// returns the results in id order. The first error cancels the rest.
func fetchAll[T any](ctx context.Context, ids []string, limit int, fetch func(context.Context, string) (T, error)) ([]T, error) {
	out := make([]T, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, id := range ids {
		g.Go(func() error {
			v, err := fetch(gctx, id)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
