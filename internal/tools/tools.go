// Package tools implements the actions the assistant can take: mail,
// calendar and web search, and registers them with an action registry.
package tools

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/soyeahso/matrix/internal/action"
)

// Mailbox lists unread mail.
type Mailbox interface {
	UnreadEmails(ctx context.Context, n int) ([]EmailSummary, error)
}

// Mailer sends mail.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) (*SentMessage, error)
}

// Scheduler manages calendar events.
type Scheduler interface {
	UpcomingEvents(ctx context.Context, start, end string) ([]Event, error)
	AddEvent(ctx context.Context, in EventInput) (*Event, error)
	UpdateEvent(ctx context.Context, id string, in EventInput) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, query, country string) (*SearchResult, error)
}

// Set holds the backends behind the actions. Nil members leave their
// actions unregistered.
type Set struct {
	Mailbox        Mailbox
	Mailer         Mailer
	Calendar       Scheduler
	Search         Searcher
	UnreadLimit    int    // default for get_unread_emails n
	SearchLocation string // default for google_search location
}

// Register adds every action whose backend is configured: calendar first,
// then search, send and unread mail. The prompt lists them in this order.
func Register(reg *action.Registry, set Set) error {
	unread := set.UnreadLimit
	if unread <= 0 {
		unread = 5
	}
	location := set.SearchLocation
	if location == "" {
		location = "in"
	}

	var errs []error
	add := func(d action.Descriptor, h action.Handler) {
		errs = append(errs, reg.Register(d, h))
	}

	if cal := set.Calendar; cal != nil {
		eventParams := []action.Param{
			action.Required("summary", action.TypeString),
			action.Required("start_time", action.TypeString),
			action.Required("end_time", action.TypeString),
			action.WithDefault("location", action.TypeString, "None"),
			action.WithDefault("attendee_emails", action.TypeStringList, "None"),
		}
		eventInput := func(args action.Args) EventInput {
			return EventInput{
				Summary:   args.String("summary"),
				Start:     args.String("start_time"),
				End:       args.String("end_time"),
				Location:  args.String("location"),
				Attendees: args.Strings("attendee_emails"),
			}
		}

		add(action.Descriptor{
			Name:        "gcal_add_event",
			Description: "Adds a calendar event.",
			Params:      eventParams,
		}, func(ctx context.Context, args action.Args) (any, error) {
			return cal.AddEvent(ctx, eventInput(args))
		})

		add(action.Descriptor{
			Name:        "gcal_get_upcoming_events",
			Description: "Lists calendar events between two times.",
			Params: []action.Param{
				action.Required("start_time", action.TypeString),
				action.Required("end_time", action.TypeString),
			},
		}, func(ctx context.Context, args action.Args) (any, error) {
			return cal.UpcomingEvents(ctx, args.String("start_time"), args.String("end_time"))
		})

		add(action.Descriptor{
			Name:        "gcal_delete_event",
			Description: "Deletes a calendar event.",
			Params:      []action.Param{action.Required("event_id", action.TypeString)},
		}, func(ctx context.Context, args action.Args) (any, error) {
			id := args.String("event_id")
			if err := cal.DeleteEvent(ctx, id); err != nil {
				return nil, err
			}
			return map[string]string{"event_id": id, "status": "deleted"}, nil
		})

		add(action.Descriptor{
			Name:        "gcal_update_event",
			Description: "Updates a calendar event.",
			Params:      append([]action.Param{action.Required("event_id", action.TypeString)}, eventParams...),
		}, func(ctx context.Context, args action.Args) (any, error) {
			return cal.UpdateEvent(ctx, args.String("event_id"), eventInput(args))
		})
	}

	if set.Search != nil {
		add(action.Descriptor{
			Name:        "google_search",
			Description: "Searches the web.",
			Params: []action.Param{
				action.Required("query", action.TypeString),
				action.WithDefault("location", action.TypeString, quote(location)),
			},
		}, func(ctx context.Context, args action.Args) (any, error) {
			return set.Search.Search(ctx, args.String("query"), args.String("location"))
		})
	}

	if set.Mailer != nil {
		add(action.Descriptor{
			Name:        "send_email",
			Description: "Sends an email.",
			Params: []action.Param{
				action.Required("to_email", action.TypeString),
				action.Required("subject", action.TypeString),
				action.Required("body", action.TypeString),
			},
		}, func(ctx context.Context, args action.Args) (any, error) {
			return set.Mailer.SendEmail(ctx, args.String("to_email"), args.String("subject"), args.String("body"))
		})
	}

	if set.Mailbox != nil {
		add(action.Descriptor{
			Name:        "get_unread_emails",
			Description: "Retrieves the most recent unread emails.",
			Params:      []action.Param{action.WithDefault("n", action.TypeInt, strconv.Itoa(unread))},
		}, func(ctx context.Context, args action.Args) (any, error) {
			return set.Mailbox.UnreadEmails(ctx, args.Int("n"))
		})
	}

	return errors.Join(errs...)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), "'", `\'`) + "'"
}
