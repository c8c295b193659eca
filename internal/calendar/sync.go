// ABOUTME: Connects a user's Google Calendar and syncs events with time blocks.
// ABOUTME: Imported events are matched to blocks by external event id.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/storage"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
)

// CalendarScope grants read/write access to calendar events.
const CalendarScope = "https://www.googleapis.com/auth/calendar.events"

// GoogleEndpoint is Google's OAuth 2.0 endpoint.
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Store is the subset of storage used by calendar sync.
type Store interface {
	GetCalendarConnection(ctx context.Context, userID uuid.UUID) (*models.CalendarConnection, error)
	UpsertCalendarConnection(ctx context.Context, c *models.CalendarConnection) error
	DeleteCalendarConnection(ctx context.Context, userID uuid.UUID) error

	GetTimeBlockByExternalID(ctx context.Context, userID uuid.UUID, externalID string) (*models.TimeBlock, error)
	CreateTimeBlock(ctx context.Context, b *models.TimeBlock) error
	UpdateTimeBlock(ctx context.Context, b *models.TimeBlock) error
}

// Service manages calendar connections and sync.
type Service struct {
	oauth    *oauth2.Config
	store    Store
	endpoint string
	logger   *log.Logger
	now      func() time.Time
}

// NewService creates a calendar service for the given OAuth client.
func NewService(oauthCfg *oauth2.Config, store Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		oauth:  oauthCfg,
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// OAuthConfig builds the Google OAuth client configuration.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     GoogleEndpoint,
		Scopes:       []string{CalendarScope},
	}
}

// AuthURL returns the consent page URL; state is echoed back to the redirect.
func (s *Service) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Connect exchanges an authorization code and stores the resulting token.
func (s *Service) Connect(ctx context.Context, userID uuid.UUID, code, calendarID string) (*models.CalendarConnection, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("connect calendar: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	conn := &models.CalendarConnection{UserID: userID, CalendarID: calendarID}
	applyToken(conn, tok)
	if err := s.store.UpsertCalendarConnection(ctx, conn); err != nil {
		return nil, fmt.Errorf("connect calendar: %w", err)
	}
	return conn, nil
}

// Disconnect forgets the user's calendar token.
func (s *Service) Disconnect(ctx context.Context, userID uuid.UUID) error {
	return s.store.DeleteCalendarConnection(ctx, userID)
}

// SyncResult counts what a sync changed.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Sync imports the events in [from, to) as time blocks, updating blocks that
// were imported before and inserting the rest. Cancelled and all-day events
// are skipped.
func (s *Service) Sync(ctx context.Context, userID uuid.UUID, from, to time.Time) (*SyncResult, error) {
	client, conn, ts, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}

	events, err := client.ListEvents(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("sync calendar: %w", err)
	}

	res := &SyncResult{}
	for _, e := range events {
		start, end, timed := eventSpan(e)
		if e.Id == "" || e.Status == "cancelled" || !timed {
			res.Skipped++
			continue
		}
		created, err := s.importEvent(ctx, userID, e, start, end)
		if err != nil {
			return res, fmt.Errorf("sync calendar: event %s: %w", e.Id, err)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	if err := s.saveToken(ctx, conn, ts); err != nil {
		return res, err
	}
	s.logger.Info("calendar synced", "user_id", userID, "created", res.Created, "updated", res.Updated, "skipped", res.Skipped)
	return res, nil
}

func (s *Service) importEvent(ctx context.Context, userID uuid.UUID, e *Event, start, end time.Time) (bool, error) {
	b, err := s.store.GetTimeBlockByExternalID(ctx, userID, e.Id)
	if errors.Is(err, storage.ErrNotFound) {
		b = models.NewTimeBlock(userID, e.Summary, start, end)
		id := e.Id
		b.ExternalEventID = &id
		setEventDetails(b, e)
		return true, s.store.CreateTimeBlock(ctx, b)
	}
	if err != nil {
		return false, err
	}

	b.Title = e.Summary
	b.StartsAt = start
	b.EndsAt = end
	setEventDetails(b, e)
	return false, s.store.UpdateTimeBlock(ctx, b)
}

func setEventDetails(b *models.TimeBlock, e *Event) {
	if rule := rrule(e); rule != "" {
		b.Recurrence = &rule
	} else {
		b.Recurrence = nil
	}
	if e.Description != "" {
		desc := e.Description
		b.Notes = &desc
	}
}

// Push writes a time block to the calendar, creating the event on first push
// and updating it afterwards. The block's external id is stored.
func (s *Service) Push(ctx context.Context, b *models.TimeBlock) (*Event, error) {
	client, conn, ts, err := s.client(ctx, b.UserID)
	if err != nil {
		return nil, err
	}

	e := &Event{
		Summary: b.Title,
		Start:   &gcal.EventDateTime{DateTime: b.StartsAt.UTC().Format(time.RFC3339)},
		End:     &gcal.EventDateTime{DateTime: b.EndsAt.UTC().Format(time.RFC3339)},
	}
	if b.Notes != nil {
		e.Description = *b.Notes
	}
	if b.Recurrence != nil && *b.Recurrence != "" {
		e.Recurrence = []string{"RRULE:" + *b.Recurrence}
	}

	var out *Event
	if b.ExternalEventID != nil {
		e.Id = *b.ExternalEventID
		out, err = client.UpdateEvent(ctx, e)
	} else {
		out, err = client.CreateEvent(ctx, e)
	}
	if err != nil {
		return nil, fmt.Errorf("push time block: %w", err)
	}

	if b.ExternalEventID == nil || *b.ExternalEventID != out.Id {
		id := out.Id
		b.ExternalEventID = &id
		if err := s.store.UpdateTimeBlock(ctx, b); err != nil {
			return nil, fmt.Errorf("push time block: %w", err)
		}
	}
	if err := s.saveToken(ctx, conn, ts); err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes a block's calendar event, if it has one.
func (s *Service) Remove(ctx context.Context, b *models.TimeBlock) error {
	if b.ExternalEventID == nil {
		return nil
	}
	client, _, _, err := s.client(ctx, b.UserID)
	if err != nil {
		return err
	}
	return client.DeleteEvent(ctx, *b.ExternalEventID)
}

func (s *Service) client(ctx context.Context, userID uuid.UUID) (*Client, *models.CalendarConnection, oauth2.TokenSource, error) {
	conn, err := s.store.GetCalendarConnection(ctx, userID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("calendar not connected: %w", err)
	}
	tok := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		TokenType:    conn.TokenType,
		Expiry:       conn.Expiry,
	}
	ts := s.oauth.TokenSource(ctx, tok)
	httpClient := &http.Client{Transport: &oauth2.Transport{Source: ts}, Timeout: 30 * time.Second}
	client, err := NewClient(ctx, httpClient, s.endpoint, conn.CalendarID)
	if err != nil {
		return nil, nil, nil, err
	}
	return client, conn, ts, nil
}

// saveToken persists the current token, which the library may have refreshed,
// and the sync time.
func (s *Service) saveToken(ctx context.Context, conn *models.CalendarConnection, ts oauth2.TokenSource) error {
	tok, err := ts.Token()
	if err != nil {
		return fmt.Errorf("calendar token: %w", err)
	}
	applyToken(conn, tok)
	now := s.now()
	conn.LastSyncedAt = &now
	if err := s.store.UpsertCalendarConnection(ctx, conn); err != nil {
		return fmt.Errorf("save calendar token: %w", err)
	}
	return nil
}

func applyToken(conn *models.CalendarConnection, tok *oauth2.Token) {
	conn.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		conn.RefreshToken = tok.RefreshToken
	}
	conn.TokenType = tok.TokenType
	conn.Expiry = tok.Expiry.UTC()
}
