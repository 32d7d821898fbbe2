package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/stonybrain/cityprotect-api/internal/incident"
	"github.com/stonybrain/cityprotect-api/internal/observability"
)

// Sink delivers a formatted summary to the external chat channel.
type Sink interface {
	Send(ctx context.Context, content string) error
}

// Tracker remembers which incident ids have been reported. It lives in
// process memory with no expiry: after a restart, incidents still inside the
// active window are re-reported once. That drift is accepted — incidents
// scroll out of the query window on their own.
type Tracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

// Delta returns the incidents whose id is non-nil and not yet seen, and marks
// them seen.
func (t *Tracker) Delta(incidents []incident.Incident) []incident.Incident {
	t.mu.Lock()
	defer t.mu.Unlock()

	var fresh []incident.Incident
	for _, inc := range incidents {
		if inc.ID == nil {
			continue
		}
		if _, ok := t.seen[*inc.ID]; ok {
			continue
		}
		t.seen[*inc.ID] = struct{}{}
		fresh = append(fresh, inc)
	}
	return fresh
}

// Notifier reports newly observed incidents to a sink.
type Notifier struct {
	tracker  *Tracker
	sink     Sink
	maxItems int
	metrics  *observability.Metrics
}

// NewNotifier creates a Notifier that summarizes at most maxItems incidents
// per message.
func NewNotifier(tracker *Tracker, sink Sink, maxItems int, metrics *observability.Metrics) *Notifier {
	return &Notifier{
		tracker:  tracker,
		sink:     sink,
		maxItems: maxItems,
		metrics:  metrics,
	}
}

// Notify sends a summary of the incidents not yet reported and returns how
// many were included. An empty delta sends nothing. Sink failures surface to
// the caller; the delta stays marked seen either way (at-most-once delivery).
func (n *Notifier) Notify(ctx context.Context, incidents []incident.Incident) (int, error) {
	delta := n.tracker.Delta(incidents)
	if len(delta) == 0 {
		n.metrics.Notifications.WithLabelValues("empty").Inc()
		return 0, nil
	}

	if err := n.sink.Send(ctx, FormatSummary(delta, n.maxItems)); err != nil {
		n.metrics.Notifications.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("send notification: %w", err)
	}
	n.metrics.Notifications.WithLabelValues("sent").Inc()
	return len(delta), nil
}

// FormatSummary renders a bounded-length message: a header, up to maxItems
// incident lines, and a remainder count.
func FormatSummary(delta []incident.Incident, maxItems int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d new Redding incident(s)\n", len(delta))

	shown := delta
	if maxItems > 0 && len(shown) > maxItems {
		shown = shown[:maxItems]
	}
	for _, inc := range shown {
		fmt.Fprintf(&b, "• %s — %s", inc.Type, inc.Zone)
		if inc.Datetime != nil {
			fmt.Fprintf(&b, " (%s)", *inc.Datetime)
		}
		if inc.Address != nil {
			fmt.Fprintf(&b, " @ %s", *inc.Address)
		}
		b.WriteByte('\n')
	}

	if rest := len(delta) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "…and %d more\n", rest)
	}
	return strings.TrimRight(b.String(), "\n")
}
