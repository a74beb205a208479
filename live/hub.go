// Package live pushes report updates to websocket subscribers when the
// responses of a form change.
package live

import (
	"context"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var subscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "formify_live_subscribers",
	Help: "Open live report subscriptions",
})

// Subscriber receives a signal whenever its form changed. Signals coalesce:
// several changes before the subscriber reads yield a single signal.
type Subscriber struct {
	FormID  uuid.UUID
	changed chan struct{}
}

func (s *Subscriber) Changed() <-chan struct{} {
	return s.changed
}

type membership struct {
	join bool
	sub  *Subscriber
}

type countRequest struct {
	formID uuid.UUID
	result chan<- int
}

// Hub groups subscribers by form. All group state is owned by the goroutine
// started in NewHub.
type Hub struct {
	ctx     context.Context
	members chan membership
	changes chan uuid.UUID
	counts  chan countRequest
}

// NewHub starts the hub; it stops when ctx is done.
func NewHub(ctx context.Context) *Hub {
	h := &Hub{
		ctx:     ctx,
		members: make(chan membership),
		changes: make(chan uuid.UUID, 64),
		counts:  make(chan countRequest),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	groups := make(map[uuid.UUID]map[*Subscriber]struct{})

	for {
		select {
		case <-h.ctx.Done():
			for _, group := range groups {
				subscribersGauge.Sub(float64(len(group)))
			}
			return

		case m := <-h.members:
			group := groups[m.sub.FormID]
			if m.join {
				if group == nil {
					group = make(map[*Subscriber]struct{})
					groups[m.sub.FormID] = group
				}
				group[m.sub] = struct{}{}
				subscribersGauge.Inc()
				continue
			}
			if _, ok := group[m.sub]; ok {
				delete(group, m.sub)
				subscribersGauge.Dec()
				if len(group) == 0 {
					delete(groups, m.sub.FormID)
				}
			}

		case formID := <-h.changes:
			for sub := range groups[formID] {
				select {
				case sub.changed <- struct{}{}:
				default:
				}
			}

		case req := <-h.counts:
			req.result <- len(groups[req.formID])
		}
	}
}

func (h *Hub) Subscribe(formID uuid.UUID) *Subscriber {
	sub := &Subscriber{FormID: formID, changed: make(chan struct{}, 1)}
	select {
	case h.members <- membership{true, sub}:
	case <-h.ctx.Done():
	}
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	select {
	case h.members <- membership{false, sub}:
	case <-h.ctx.Done():
	}
}

// FormChanged signals every subscriber of the form. It never waits on a
// subscriber.
func (h *Hub) FormChanged(formID uuid.UUID) {
	select {
	case h.changes <- formID:
	case <-h.ctx.Done():
	}
}

// Subscribers returns how many subscribers the form currently has.
func (h *Hub) Subscribers(formID uuid.UUID) int {
	result := make(chan int, 1)
	select {
	case h.counts <- countRequest{formID, result}:
		return <-result
	case <-h.ctx.Done():
		return 0
	}
}
