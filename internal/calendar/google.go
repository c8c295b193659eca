// ABOUTME: Google Calendar client for listing and editing events on one calendar.
// ABOUTME: Wraps the calendar/v3 API; authentication comes from the oauth2 HTTP client passed in.
package calendar

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Event is a Google Calendar event.
type Event = gcal.Event

// Client calls the Calendar API for one calendar.
type Client struct {
	events     *gcal.EventsService
	calendarID string
}

// NewClient creates a client. httpClient must add authentication. An empty
// endpoint means Google's and an empty calendarID means "primary".
func NewClient(ctx context.Context, httpClient *http.Client, endpoint, calendarID string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar client: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Client{events: svc.Events, calendarID: calendarID}, nil
}

// ListEvents returns the events overlapping [from, to). Recurring events are
// returned once, with their recurrence rules.
func (c *Client) ListEvents(ctx context.Context, from, to time.Time) ([]*Event, error) {
	var events []*Event
	call := c.events.List(c.calendarID).
		TimeMin(from.UTC().Format(time.RFC3339)).
		TimeMax(to.UTC().Format(time.RFC3339)).
		SingleEvents(false).
		MaxResults(250)
	err := call.Pages(ctx, func(page *gcal.Events) error {
		events = append(events, page.Items...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// CreateEvent inserts an event and returns it with its new id.
func (c *Client) CreateEvent(ctx context.Context, e *Event) (*Event, error) {
	out, err := c.events.Insert(c.calendarID, e).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return out, nil
}

// UpdateEvent replaces an existing event.
func (c *Client) UpdateEvent(ctx context.Context, e *Event) (*Event, error) {
	if e.Id == "" {
		return nil, fmt.Errorf("update event: missing id")
	}
	out, err := c.events.Update(c.calendarID, e.Id, e).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return out, nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	if err := c.events.Delete(c.calendarID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// allDay reports whether the event spans whole days.
func allDay(e *Event) bool {
	return e.Start == nil || e.Start.DateTime == ""
}

// eventSpan returns a timed event's start and end in UTC.
func eventSpan(e *Event) (time.Time, time.Time, bool) {
	if allDay(e) || e.End == nil || e.End.DateTime == "" {
		return time.Time{}, time.Time{}, false
	}
	start, err := time.Parse(time.RFC3339, e.Start.DateTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(time.RFC3339, e.End.DateTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start.UTC(), end.UTC(), true
}

// rrule returns the event's RRULE without its prefix, or "".
func rrule(e *Event) string {
	for _, line := range e.Recurrence {
		if strings.HasPrefix(strings.ToUpper(line), "RRULE:") {
			return line[len("RRULE:"):]
		}
	}
	return ""
}
