package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stonybrain/cityprotect-api/internal/incident"
	"github.com/stonybrain/cityprotect-api/internal/observability"
)

// recordingSink captures every message it is asked to deliver.
type recordingSink struct {
	messages []string
	err      error
}

func (s *recordingSink) Send(_ context.Context, content string) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, content)
	return nil
}

func strptr(s string) *string { return &s }

func TestNotify_ReportsEachIncidentOnce(t *testing.T) {
	sink := &recordingSink{}
	n := NewNotifier(NewTracker(), sink, 10, observability.NewMetricsForTesting())

	batch := []incident.Incident{
		{ID: strptr("a"), Type: "Theft", Zone: "North Redding"},
		{ID: strptr("b"), Type: "Assault", Zone: "Central Redding"},
	}

	sent, err := n.Notify(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, sink.messages, 1)

	// Same batch again: everything already seen, nothing delivered.
	sent, err = n.Notify(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Len(t, sink.messages, 1)
}

func TestNotify_OnlyUnseenIncidentsIncluded(t *testing.T) {
	sink := &recordingSink{}
	n := NewNotifier(NewTracker(), sink, 10, observability.NewMetricsForTesting())

	_, err := n.Notify(context.Background(), []incident.Incident{
		{ID: strptr("a"), Type: "Theft", Zone: "North Redding"},
	})
	require.NoError(t, err)

	sent, err := n.Notify(context.Background(), []incident.Incident{
		{ID: strptr("a"), Type: "Theft", Zone: "North Redding"},
		{ID: strptr("b"), Type: "Vandalism", Zone: "West Redding"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, sink.messages, 2)
	assert.Contains(t, sink.messages[1], "Vandalism")
	assert.NotContains(t, sink.messages[1], "Theft")
}

func TestNotify_IncidentsWithoutIDAreSkipped(t *testing.T) {
	sink := &recordingSink{}
	n := NewNotifier(NewTracker(), sink, 10, observability.NewMetricsForTesting())

	sent, err := n.Notify(context.Background(), []incident.Incident{
		{Type: "Theft", Zone: "North Redding"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, sink.messages)
}

func TestNotify_SinkFailureSurfacesAndStaysSeen(t *testing.T) {
	sink := &recordingSink{err: errors.New("webhook status 500: boom")}
	n := NewNotifier(NewTracker(), sink, 10, observability.NewMetricsForTesting())

	batch := []incident.Incident{{ID: strptr("a"), Type: "Theft", Zone: "North Redding"}}

	_, err := n.Notify(context.Background(), batch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook status 500")

	// At-most-once: the failed incident is not re-offered.
	sink.err = nil
	sent, err := n.Notify(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestFormatSummary_TruncatesWithRemainder(t *testing.T) {
	delta := []incident.Incident{
		{Type: "Theft", Zone: "North Redding", Datetime: strptr("2023-09-26T14:30:00.000Z"), Address: strptr("1300 Block Market St")},
		{Type: "Assault", Zone: "Central Redding"},
		{Type: "Vandalism", Zone: "West Redding"},
	}

	got := FormatSummary(delta, 2)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "3 new Redding incident(s)", lines[0])
	assert.Equal(t, "• Theft — North Redding (2023-09-26T14:30:00.000Z) @ 1300 Block Market St", lines[1])
	assert.Equal(t, "• Assault — Central Redding", lines[2])
	assert.Equal(t, "…and 1 more", lines[3])
}

func TestFormatSummary_NoRemainderLineWhenAllShown(t *testing.T) {
	delta := []incident.Incident{{Type: "Theft", Zone: "North Redding"}}

	got := FormatSummary(delta, 10)
	assert.Equal(t, "1 new Redding incident(s)\n• Theft — North Redding", got)
}

func TestWebhook_Send(t *testing.T) {
	var body webhookBody
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(&http.Client{Timeout: time.Second}, srv.URL, "Redding Crime Watch")
	err := wh.Send(context.Background(), "2 new Redding incident(s)")
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "2 new Redding incident(s)", body.Content)
	assert.Equal(t, "Redding Crime Watch", body.Username)
	require.NotNil(t, body.AllowedMentions)
	assert.Empty(t, body.AllowedMentions.Parse)
}

func TestWebhook_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid payload"}`))
	}))
	defer srv.Close()

	wh := NewWebhook(&http.Client{Timeout: time.Second}, srv.URL, "")
	err := wh.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook status 400")
	assert.Contains(t, err.Error(), "invalid payload")
}
