package sink

import (
	"context"
	"log"
	"time"

	"github.com/shpluspower/backend/internal/metrics"
)

// Notifier wraps a Sink with fire-and-forget delivery: bounded retries
// with a fixed backoff, then the payload is dropped. Failures never
// propagate to the caller; they show up in logs and metrics only.
type Notifier struct {
	sink    Sink
	retries int
	backoff time.Duration
}

// NewNotifier creates a notifier over sink. retries is the number of
// additional attempts after the first failure.
func NewNotifier(s Sink, retries int, backoff time.Duration) *Notifier {
	return &Notifier{sink: s, retries: retries, backoff: backoff}
}

// Notify queues payload for asynchronous delivery and returns immediately
func (n *Notifier) Notify(payload interface{}) {
	go n.deliver(payload)
}

func (n *Notifier) deliver(payload interface{}) {
	ctx := context.Background()

	var err error
	for attempt := 0; attempt <= n.retries; attempt++ {
		if attempt > 0 {
			metrics.SinkRetries.Inc()
			time.Sleep(n.backoff)
		}
		if err = n.sink.Send(ctx, payload); err == nil {
			metrics.SinkDeliveries.Inc()
			return
		}
	}

	metrics.SinkDropped.Inc()
	log.Printf("dropping sink payload after %d attempts: %v", n.retries+1, err)
}
