package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/soyeahso/matrix/internal/logging"
)

// timeLayout is the local timestamp format the assistant speaks in.
const timeLayout = "2006-01-02T15:04:05"

const (
	primaryCalendar = "primary"
	maxListedEvents = 10
)

// Event is what the assistant sees of a calendar event.
type Event struct {
	EventID   string   `json:"event_id"`
	Time      string   `json:"time"`
	End       string   `json:"end,omitempty"`
	Summary   string   `json:"summary"`
	Location  string   `json:"location"`
	Attendees []string `json:"attendees"`
	Link      string   `json:"link,omitempty"`
}

// EventInput describes an event to create or overwrite.
type EventInput struct {
	Summary   string
	Start     string
	End       string
	Location  string
	Attendees []string
}

// Calendar manages events on the user's primary Google calendar.
type Calendar struct {
	svc *calendar.Service
	tz  *time.Location
	log *logging.Logger
}

// NewCalendar wraps a Calendar service. Times without an explicit offset
// are read in tz.
func NewCalendar(svc *calendar.Service, tz *time.Location, log *logging.Logger) *Calendar {
	if tz == nil {
		tz = time.Local
	}
	return &Calendar{svc: svc, tz: tz, log: log.Sub("tools.calendar")}
}

// UpcomingEvents lists up to ten single events starting in [start, end).
func (c *Calendar) UpcomingEvents(ctx context.Context, start, end string) ([]Event, error) {
	from, err := parseTime(start, c.tz)
	if err != nil {
		return nil, err
	}
	to, err := parseTime(end, c.tz)
	if err != nil {
		return nil, err
	}

	res, err := c.svc.Events.List(primaryCalendar).
		TimeMin(from.UTC().Format(time.RFC3339)).
		TimeMax(to.UTC().Format(time.RFC3339)).
		MaxResults(maxListedEvents).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	events := make([]Event, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, toEvent(item))
	}
	c.log.Debug().Int("count", len(events)).Str("from", start).Str("to", end).Msg("listed events")
	return events, nil
}

// AddEvent creates an event.
func (c *Calendar) AddEvent(ctx context.Context, in EventInput) (*Event, error) {
	ev := &calendar.Event{Summary: in.Summary, Location: in.Location}
	if err := c.applyTimes(ev, in.Start, in.End); err != nil {
		return nil, err
	}
	ev.Attendees = attendees(in.Attendees)

	created, err := c.svc.Events.Insert(primaryCalendar, ev).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}
	c.log.Info().Str("id", created.Id).Str("summary", created.Summary).Msg("event created")
	out := toEvent(created)
	return &out, nil
}

// UpdateEvent overwrites an event's summary, times and location. Attendees
// are replaced only when in.Attendees is non-empty.
func (c *Calendar) UpdateEvent(ctx context.Context, id string, in EventInput) (*Event, error) {
	ev, err := c.svc.Events.Get(primaryCalendar, id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetching event %s: %w", id, err)
	}

	ev.Summary = in.Summary
	ev.Location = in.Location
	if err := c.applyTimes(ev, in.Start, in.End); err != nil {
		return nil, err
	}
	if len(in.Attendees) > 0 {
		ev.Attendees = attendees(in.Attendees)
	}

	updated, err := c.svc.Events.Update(primaryCalendar, id, ev).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("updating event %s: %w", id, err)
	}
	c.log.Info().Str("id", id).Msg("event updated")
	out := toEvent(updated)
	return &out, nil
}

// DeleteEvent removes an event.
func (c *Calendar) DeleteEvent(ctx context.Context, id string) error {
	if err := c.svc.Events.Delete(primaryCalendar, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("deleting event %s: %w", id, err)
	}
	c.log.Info().Str("id", id).Msg("event deleted")
	return nil
}

func (c *Calendar) applyTimes(ev *calendar.Event, start, end string) error {
	from, err := parseTime(start, c.tz)
	if err != nil {
		return err
	}
	to, err := parseTime(end, c.tz)
	if err != nil {
		return err
	}
	if to.Before(from) {
		return fmt.Errorf("event ends (%s) before it starts (%s)", end, start)
	}
	ev.Start = &calendar.EventDateTime{DateTime: from.Format(time.RFC3339), TimeZone: c.tz.String()}
	ev.End = &calendar.EventDateTime{DateTime: to.Format(time.RFC3339), TimeZone: c.tz.String()}
	return nil
}

// parseTime accepts RFC 3339 or a local timestamp, optionally without
// seconds, interpreted in tz.
func parseTime(s string, tz *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{timeLayout, "2006-01-02T15:04", "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, tz); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want %s", s, timeLayout)
}

func attendees(emails []string) []*calendar.EventAttendee {
	out := make([]*calendar.EventAttendee, 0, len(emails))
	for _, e := range emails {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, &calendar.EventAttendee{Email: e})
		}
	}
	return out
}

func toEvent(item *calendar.Event) Event {
	ev := Event{
		EventID:   item.Id,
		Summary:   item.Summary,
		Location:  item.Location,
		Attendees: []string{},
		Link:      item.HtmlLink,
	}
	if item.Start != nil {
		ev.Time = item.Start.DateTime
		if ev.Time == "" {
			ev.Time = item.Start.Date
		}
	}
	if item.End != nil {
		ev.End = item.End.DateTime
		if ev.End == "" {
			ev.End = item.End.Date
		}
	}
	for _, a := range item.Attendees {
		ev.Attendees = append(ev.Attendees, a.Email)
	}
	return ev
}
