// ABOUTME: Tests for Google Calendar sync against fake OAuth and Calendar servers.
// ABOUTME: Time blocks land in a temp SQLite database.
package calendar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
)

type fakeGoogle struct {
	mu       sync.Mutex
	pages    [][]map[string]any
	auth     []string
	refresh  int
	created  []map[string]any
	updated  []string
	deleted  []string
	failList bool
}

func (f *fakeGoogle) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.mu.Lock()
		if r.Form.Get("grant_type") == "refresh_token" {
			f.refresh++
		}
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token": "fresh-token", "token_type": "Bearer", "refresh_token": "rt", "expires_in": 3600}`)
	})
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodGet:
			if f.failList {
				w.WriteHeader(http.StatusForbidden)
				_, _ = io.WriteString(w, `{"error": {"message": "insufficient scope"}}`)
				return
			}
			page := 0
			if r.URL.Query().Get("pageToken") == "p2" {
				page = 1
			}
			body := map[string]any{"items": f.pages[page]}
			if page == 0 && len(f.pages) > 1 {
				body["nextPageToken"] = "p2"
			}
			_ = json.NewEncoder(w).Encode(body)
		case http.MethodPost:
			var e map[string]any
			_ = json.NewDecoder(r.Body).Decode(&e)
			e["id"] = "evt_created"
			f.created = append(f.created, e)
			_ = json.NewEncoder(w).Encode(e)
		}
	})
	mux.HandleFunc("/calendars/primary/events/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.URL.Path[len("/calendars/primary/events/"):]
		switch r.Method {
		case http.MethodPut:
			var e map[string]any
			_ = json.NewDecoder(r.Body).Decode(&e)
			f.updated = append(f.updated, id)
			_ = json.NewEncoder(w).Encode(e)
		case http.MethodDelete:
			f.deleted = append(f.deleted, id)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	return mux
}

func newTestService(t *testing.T, fake *fakeGoogle) (*Service, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "goalpro.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	cfg := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
		Scopes:       []string{CalendarScope},
	}
	svc := NewService(cfg, db, log.New(io.Discard))
	svc.endpoint = srv.URL + "/"
	return svc, db
}

func connect(t *testing.T, db *storage.DB, user uuid.UUID, expiry time.Time) {
	t.Helper()
	err := db.UpsertCalendarConnection(context.Background(), &models.CalendarConnection{
		UserID:       user,
		CalendarID:   "primary",
		AccessToken:  "stored-token",
		RefreshToken: "rt",
		TokenType:    "Bearer",
		Expiry:       expiry,
	})
	require.NoError(t, err)
}

func timed(id, summary string, start time.Time, extra map[string]any) map[string]any {
	e := map[string]any{
		"id":      id,
		"summary": summary,
		"status":  "confirmed",
		"start":   map[string]any{"dateTime": start.Format(time.RFC3339)},
		"end":     map[string]any{"dateTime": start.Add(time.Hour).Format(time.RFC3339)},
	}
	for k, v := range extra {
		e[k] = v
	}
	return e
}

func TestConnectStoresToken(t *testing.T) {
	svc, db := newTestService(t, &fakeGoogle{})
	ctx := context.Background()
	user := uuid.New()

	conn, err := svc.Connect(ctx, user, "auth-code", "")
	require.NoError(t, err)
	assert.Equal(t, "primary", conn.CalendarID)

	stored, err := db.GetCalendarConnection(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", stored.AccessToken)
	assert.Equal(t, "rt", stored.RefreshToken)
	assert.True(t, stored.Expiry.After(time.Now()))

	require.NoError(t, svc.Disconnect(ctx, user))
	_, err = db.GetCalendarConnection(ctx, user)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAuthURLRequestsOfflineAccess(t *testing.T) {
	svc, _ := newTestService(t, &fakeGoogle{})
	u := svc.AuthURL("state-123")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "state=state-123")
}

func TestSyncImportsAndUpdatesBlocks(t *testing.T) {
	start := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	fake := &fakeGoogle{pages: [][]map[string]any{
		{
			timed("evt_new", "Deep work", start, map[string]any{"description": "no meetings"}),
			timed("evt_old", "Standup (moved)", start.Add(2*time.Hour), map[string]any{
				"recurrence": []string{"EXDATE:20260309T170000Z", "RRULE:FREQ=WEEKLY;BYDAY=MO"},
			}),
		},
		{
			{"id": "evt_allday", "summary": "Holiday", "start": map[string]any{"date": "2026-03-03"}, "end": map[string]any{"date": "2026-03-04"}},
			timed("evt_gone", "Cancelled", start, map[string]any{"status": "cancelled"}),
		},
	}}
	svc, db := newTestService(t, fake)
	ctx := context.Background()
	user := uuid.New()
	connect(t, db, user, time.Now().Add(time.Hour))

	old := models.NewTimeBlock(user, "Standup", start, start.Add(30*time.Minute))
	oldID := "evt_old"
	old.ExternalEventID = &oldID
	require.NoError(t, db.CreateTimeBlock(ctx, old))

	res, err := svc.Sync(ctx, user, start.Add(-24*time.Hour), start.Add(7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Created: 1, Updated: 1, Skipped: 2}, *res)

	for _, h := range fake.auth {
		assert.Equal(t, "Bearer stored-token", h)
	}

	created, err := db.GetTimeBlockByExternalID(ctx, user, "evt_new")
	require.NoError(t, err)
	assert.Equal(t, "Deep work", created.Title)
	assert.True(t, created.StartsAt.Equal(start))
	require.NotNil(t, created.Notes)
	assert.Equal(t, "no meetings", *created.Notes)

	updated, err := db.GetTimeBlock(ctx, user, old.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Standup (moved)", updated.Title)
	assert.Equal(t, time.Hour, updated.Duration())
	require.NotNil(t, updated.Recurrence)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", *updated.Recurrence)

	conn, err := db.GetCalendarConnection(ctx, user)
	require.NoError(t, err)
	assert.NotNil(t, conn.LastSyncedAt)
}

func TestSyncRefreshesExpiredToken(t *testing.T) {
	fake := &fakeGoogle{pages: [][]map[string]any{{}}}
	svc, db := newTestService(t, fake)
	ctx := context.Background()
	user := uuid.New()
	connect(t, db, user, time.Now().Add(-time.Hour))

	_, err := svc.Sync(ctx, user, time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, fake.refresh)
	assert.Equal(t, []string{"Bearer fresh-token"}, fake.auth)

	conn, err := db.GetCalendarConnection(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", conn.AccessToken)
	assert.Equal(t, "rt", conn.RefreshToken)
}

func TestSyncWithoutConnection(t *testing.T) {
	svc, _ := newTestService(t, &fakeGoogle{})
	_, err := svc.Sync(context.Background(), uuid.New(), time.Now(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSyncSurfacesAPIError(t *testing.T) {
	fake := &fakeGoogle{failList: true}
	svc, db := newTestService(t, fake)
	user := uuid.New()
	connect(t, db, user, time.Now().Add(time.Hour))

	_, err := svc.Sync(context.Background(), user, time.Now(), time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient scope")
}

func TestPushCreatesThenUpdatesEvent(t *testing.T) {
	fake := &fakeGoogle{}
	svc, db := newTestService(t, fake)
	ctx := context.Background()
	user := uuid.New()
	connect(t, db, user, time.Now().Add(time.Hour))

	start := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	b := models.NewTimeBlock(user, "Write chapter", start, start.Add(90*time.Minute)).WithRecurrence("FREQ=DAILY;COUNT=3")
	require.NoError(t, db.CreateTimeBlock(ctx, b))

	ev, err := svc.Push(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "evt_created", ev.Id)
	require.Len(t, fake.created, 1)
	assert.Equal(t, []any{"RRULE:FREQ=DAILY;COUNT=3"}, fake.created[0]["recurrence"])

	stored, err := db.GetTimeBlock(ctx, user, b.ID.String())
	require.NoError(t, err)
	require.NotNil(t, stored.ExternalEventID)
	assert.Equal(t, "evt_created", *stored.ExternalEventID)

	_, err = svc.Push(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, []string{"evt_created"}, fake.updated)

	require.NoError(t, svc.Remove(ctx, stored))
	assert.Equal(t, []string{"evt_created"}, fake.deleted)
}

func TestEventHelpers(t *testing.T) {
	e := &Event{Recurrence: []string{"EXRULE:FREQ=DAILY", "RRULE:FREQ=MONTHLY"}}
	assert.Equal(t, "FREQ=MONTHLY", rrule(e))
	assert.True(t, allDay(e))
	assert.Equal(t, "", rrule(&Event{}))

	_, _, ok := eventSpan(e)
	assert.False(t, ok)
	_, _, ok = eventSpan(&Event{
		Start: &gcal.EventDateTime{DateTime: "not a time"},
		End:   &gcal.EventDateTime{DateTime: "2026-03-02T16:00:00Z"},
	})
	assert.False(t, ok)

	start, end, ok := eventSpan(&Event{
		Start: &gcal.EventDateTime{DateTime: "2026-03-02T10:00:00-05:00"},
		End:   &gcal.EventDateTime{DateTime: "2026-03-02T11:30:00-05:00"},
	})
	require.True(t, ok)
	assert.True(t, start.Equal(time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, 90*time.Minute, end.Sub(start))
}
