package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/angelmondragon/hostelhub-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const defaultDeliveryTimeout = 5 * time.Second

// Directory resolves an audience to every known principal, online or not.
type Directory interface {
	Principals(ctx context.Context, aud Audience) ([]Principal, error)
}

// Sink exports raw events outside the process.
type Sink interface {
	Name() string
	Export(ctx context.Context, e Event) error
}

// Relay broadcasts events to every replica, this one included.
type Relay interface {
	Publish(ctx context.Context, e Event) error
}

type DispatcherParams struct {
	Hub             *Hub
	Subscriptions   *SubscriptionRegistry
	Log             *Log
	Pusher          Pusher
	Directory       Directory
	Relay           Relay
	Sinks           []Sink
	Logger          *logger.Logger
	Metrics         *metrics.NotificationMetrics
	DeliveryTimeout time.Duration
	NewID           func() string
	Now             func() time.Time
}

// Report summarises one Notify call.
type Report struct {
	Recipients int `json:"recipients"`
	WebSocket  int `json:"websocket"`
	Push       int `json:"push"`
	Failed     int `json:"failed"`
	Pruned     int `json:"pruned"`
}

func (r *Report) add(o Report) {
	r.Recipients += o.Recipients
	r.WebSocket += o.WebSocket
	r.Push += o.Push
	r.Failed += o.Failed
	r.Pruned += o.Pruned
}

// Dispatcher turns events into per-principal deliveries. Delivery failures
// never reach the caller.
type Dispatcher struct {
	hub       *Hub
	subs      *SubscriptionRegistry
	log       *Log
	pusher    Pusher
	directory Directory
	relay     Relay
	sinks     []Sink
	logg      *logger.Logger
	metrics   *metrics.NotificationMetrics
	timeout   time.Duration
	newID     func() string
	now       func() time.Time
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Hub == nil {
		return nil, errors.New("hub is required")
	}
	if params.Subscriptions == nil {
		return nil, errors.New("subscription registry is required")
	}
	if params.Log == nil {
		return nil, errors.New("notification log is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.DeliveryTimeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	newID := params.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		hub:       params.Hub,
		subs:      params.Subscriptions,
		log:       params.Log,
		pusher:    params.Pusher,
		directory: params.Directory,
		relay:     params.Relay,
		sinks:     params.Sinks,
		logg:      logg,
		metrics:   params.Metrics,
		timeout:   timeout,
		newID:     newID,
		now:       now,
	}, nil
}

// Publish fans e out. With a relay configured local delivery happens when the
// relay echoes the event back; a relay failure falls back to local delivery.
func (d *Dispatcher) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = d.now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	ctx = d.logg.WithFields(ctx, map[string]any{"event": e.Type.String(), "hostel_id": e.HostelID})

	if d.relay != nil {
		if err := d.relay.Publish(ctx, e); err != nil {
			d.metrics.ObserveDelivery("relay", err)
			d.logg.Warn(ctx, "notification relay publish failed, delivering locally: "+err.Error())
			d.Deliver(ctx, e)
		} else {
			d.metrics.ObserveDelivery("relay", nil)
		}
	} else {
		d.Deliver(ctx, e)
	}

	var errs error
	for _, sink := range d.sinks {
		err := sink.Export(ctx, e)
		d.metrics.ObserveDelivery(sink.Name(), err)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		d.logg.Warn(ctx, "notification sink export failed: "+errs.Error())
	}
}

// Deliver renders e through the rule table and notifies every audience.
func (d *Dispatcher) Deliver(ctx context.Context, e Event) Report {
	var total Report
	for _, msg := range Render(e, d.newID) {
		total.add(d.Notify(ctx, msg))
	}
	return total
}

// Notify delivers msg to everyone in msg.Audience: each recipient gets a log
// entry, live connections get a websocket frame and push subscribers a push.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) Report {
	aud := msg.Audience
	recipients := map[string]Principal{}
	if d.directory != nil {
		found, err := d.directory.Principals(ctx, aud)
		if err != nil {
			d.logg.Warn(ctx, "notification directory lookup failed: "+err.Error())
		}
		for _, p := range found {
			recipients[p.UserID] = p
		}
	}
	for _, p := range d.hub.Connected(aud) {
		recipients[p.UserID] = p
	}
	subs := d.subs.Matching(aud)
	for _, sub := range subs {
		recipients[sub.UserID] = sub.principal()
	}

	report := Report{Recipients: len(recipients)}
	for userID := range recipients {
		d.log.Append(userID, msg)
	}

	report.WebSocket = d.hub.Deliver(ctx, msg)

	if d.pusher == nil || len(subs) == 0 {
		return report
	}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, sub := range subs {
		wg.Add(1)
		go func(sub Subscription) {
			defer wg.Done()
			err := d.pusher.Push(ctx, sub, msg)
			d.metrics.ObserveDelivery(transportPush, err)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Push++
			case errors.Is(err, ErrSubscriptionGone):
				report.Failed++
				if d.subs.Remove(sub.UserID, sub.Token) {
					report.Pruned++
					d.metrics.IncPruned()
				}
				d.logg.Warn(d.logg.WithUserID(ctx, sub.UserID), "pruned push subscription: "+err.Error())
			default:
				report.Failed++
				d.logg.Warn(d.logg.WithUserID(ctx, sub.UserID), "push delivery failed: "+err.Error())
			}
		}(sub)
	}
	wg.Wait()
	return report
}
