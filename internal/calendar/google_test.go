package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/existflow/tasknest/internal/apperr"
	"github.com/existflow/tasknest/internal/config"
	"github.com/existflow/tasknest/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

type fakeAPI struct {
	mu           sync.Mutex
	inserted     []map[string]any
	deleted      []string
	deleteStatus int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/calendars/primary/events":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.inserted = append(f.inserted, body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt-42"}`))
	case r.Method == http.MethodDelete && r.URL.Path == "/calendars/primary/events/evt-42":
		f.deleted = append(f.deleted, "evt-42")
		if f.deleteStatus != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.deleteStatus)
			_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"nope"}}`, f.deleteStatus)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func newTestGoogle(t *testing.T, api *fakeAPI) *Google {
	t.Helper()
	return newTestGoogleInZone(t, api, "Europe/Berlin")
}

func newTestGoogleInZone(t *testing.T, api *fakeAPI, zone string) *Google {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg := config.GoogleConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "refresh",
		TimeZone:     zone,
	}
	g, err := New(context.Background(), cfg,
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return g
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), config.GoogleConfig{ClientID: "id"})

	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestCreateEventSendsReminderOverrides(t *testing.T) {
	api := &fakeAPI{}
	g := newTestGoogle(t, api)
	at := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	id, err := g.CreateEvent(context.Background(), ledger.NewEvent("Pay rent", at))

	require.NoError(t, err)
	assert.Equal(t, "evt-42", id)
	require.Len(t, api.inserted, 1)

	body := api.inserted[0]
	assert.Equal(t, "Task Reminder: Pay rent", body["summary"])
	assert.Equal(t, `This is a reminder for your task: "Pay rent"`, body["description"])
	assert.Equal(t, map[string]any{"dateTime": "2025-07-01T11:00:00+02:00", "timeZone": "Europe/Berlin"}, body["start"])
	assert.Equal(t, body["start"], body["end"])
	assert.Equal(t, map[string]any{
		"useDefault": false,
		"overrides": []any{
			map[string]any{"method": "email", "minutes": float64(60)},
			map[string]any{"method": "popup", "minutes": float64(10)},
		},
	}, body["reminders"])
}

func TestDeleteEvent(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"deleted", 0, false},
		{"already gone", http.StatusGone, false},
		{"not found", http.StatusNotFound, false},
		{"rejected", http.StatusForbidden, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{deleteStatus: tt.status}
			g := newTestGoogle(t, api)

			err := g.DeleteEvent(context.Background(), "evt-42")

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, []string{"evt-42"}, api.deleted)
		})
	}
}

func TestUnsetTimeZoneUsesServerZone(t *testing.T) {
	at := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	t.Run("TZ names the zone", func(t *testing.T) {
		t.Setenv("TZ", "Asia/Tokyo")
		api := &fakeAPI{}
		g := newTestGoogleInZone(t, api, "")

		_, err := g.CreateEvent(context.Background(), ledger.NewEvent("Pay rent", at))

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"dateTime": "2025-07-01T18:00:00+09:00", "timeZone": "Asia/Tokyo"},
			api.inserted[0]["start"])
	})

	t.Run("local offset only", func(t *testing.T) {
		t.Setenv("TZ", "")
		api := &fakeAPI{}
		g := newTestGoogleInZone(t, api, "")

		_, err := g.CreateEvent(context.Background(), ledger.NewEvent("Pay rent", at))

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"dateTime": at.In(time.Local).Format(time.RFC3339)},
			api.inserted[0]["start"])
	})
}

func TestTokenRefresh(t *testing.T) {
	cfg := config.GoogleConfig{ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh"}

	t.Run("refreshes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
		}))
		t.Cleanup(srv.Close)

		ts := tokenSource(cfg, oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams}, time.Second)
		tok, err := ts.Token()

		require.NoError(t, err)
		assert.Equal(t, "tok", tok.AccessToken)
	})

	t.Run("hung endpoint times out", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		t.Cleanup(srv.Close)

		ts := tokenSource(cfg, oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams}, 50*time.Millisecond)
		start := time.Now()
		_, err := ts.Token()

		assert.Error(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}
