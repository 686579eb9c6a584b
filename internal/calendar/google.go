// Package calendar talks to Google Calendar on behalf of the reminder ledger.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/existflow/tasknest/internal/apperr"
	"github.com/existflow/tasknest/internal/config"
	"github.com/existflow/tasknest/internal/ledger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultTokenTimeout bounds each access token refresh
const DefaultTokenTimeout = 10 * time.Second

// Google creates and deletes reminder events in one Google calendar
type Google struct {
	events     *gcal.EventsService
	calendarID string
	loc        *time.Location
	timeZone   string // IANA name sent with each event; empty sends the offset only
}

var _ ledger.Calendar = (*Google)(nil)

// New builds a client from the OAuth client credentials and a long-lived
// refresh token. Missing credentials are a configuration error. Extra
// options are passed to the API client, mainly for tests.
func New(ctx context.Context, cfg config.GoogleConfig, opts ...option.ClientOption) (*Google, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ts := tokenSource(cfg, google.Endpoint, DefaultTokenTimeout)
	opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, apperr.Configuration("create calendar client", err)
	}

	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = config.DefaultCalendarID
	}
	loc, zone := resolveZone(cfg.TimeZone)
	return &Google{events: svc.Events, calendarID: calendarID, loc: loc, timeZone: zone}, nil
}

// tokenSource refreshes access tokens on its own context so that neither the
// caller of New nor a shutdown signal can cancel a refresh, and bounds each
// refresh with timeout.
func tokenSource(cfg config.GoogleConfig, endpoint oauth2.Endpoint, timeout time.Duration) oauth2.TokenSource {
	oauth := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{gcal.CalendarEventsScope},
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	return oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
}

// resolveZone picks the event time zone: the configured one, else the TZ of
// the server process, else the server's local offset with no zone name.
func resolveZone(name string) (*time.Location, string) {
	if name == "" {
		name = strings.TrimPrefix(os.Getenv("TZ"), ":")
	}
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc, name
		}
	}
	return time.Local, ""
}

// CreateEvent inserts the event and returns its id
func (g *Google) CreateEvent(ctx context.Context, ev ledger.Event) (string, error) {
	created, err := g.events.Insert(g.calendarID, g.toAPI(ev)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return created.Id, nil
}

// DeleteEvent removes the event. An event that is already gone counts as deleted.
func (g *Google) DeleteEvent(ctx context.Context, eventID string) error {
	err := g.events.Delete(g.calendarID, eventID).Context(ctx).Do()
	if err == nil || isGone(err) {
		return nil
	}
	return fmt.Errorf("delete event %s: %w", eventID, err)
}

func (g *Google) toAPI(ev ledger.Event) *gcal.Event {
	overrides := make([]*gcal.EventReminder, 0, len(ev.Alerts))
	for _, a := range ev.Alerts {
		overrides = append(overrides, &gcal.EventReminder{Method: a.Method, Minutes: int64(a.Minutes)})
	}
	return &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       g.dateTime(ev.Start),
		End:         g.dateTime(ev.End),
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

func (g *Google) dateTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{DateTime: t.In(g.loc).Format(time.RFC3339), TimeZone: g.timeZone}
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
}
