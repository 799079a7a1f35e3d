package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"spa-booking-backend/config"
	"spa-booking-backend/internal/metrics"
	"spa-booking-backend/internal/model"
	"spa-booking-backend/internal/store"
)

// Payload is the JSON body delivered to the service worker.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Job asks for a payload to be pushed to every active device of a user.
type Job struct {
	UserID  string
	Payload Payload
}

// Result summarizes one delivered job.
type Result struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Sender delivers a single encrypted push message.
type Sender interface {
	Send(ctx context.Context, payload []byte, sub *webpush.Subscription) (*http.Response, error)
}

// WebPushSender sends through webpush-go with the configured VAPID keys.
type WebPushSender struct {
	options *webpush.Options
}

// NewWebPushSender builds a sender from the push configuration.
func NewWebPushSender(cfg *config.PushConfig) *WebPushSender {
	return &WebPushSender{
		options: &webpush.Options{
			// webpush-go prepends mailto: itself.
			Subscriber:      strings.TrimPrefix(cfg.Subject, "mailto:"),
			VAPIDPublicKey:  cfg.PublicKey,
			VAPIDPrivateKey: cfg.PrivateKey,
			TTL:             cfg.TTL,
		},
	}
}

func (s *WebPushSender) Send(ctx context.Context, payload []byte, sub *webpush.Subscription) (*http.Response, error) {
	return webpush.SendNotificationWithContext(ctx, payload, sub, s.options)
}

// Dispatcher fans jobs out to a fixed number of workers.
type Dispatcher struct {
	size   int
	jobs   chan Job
	subs   store.SubscriptionStore
	sender Sender
	log    *zap.SugaredLogger
	tracer trace.Tracer
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher; call Start to launch its workers.
func NewDispatcher(cfg config.WorkerPoolConfig, subs store.SubscriptionStore, sender Sender, log *zap.SugaredLogger) *Dispatcher {
	size := cfg.Size
	if size <= 0 {
		size = 1
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = size
	}
	return &Dispatcher{
		size:   size,
		jobs:   make(chan Job, queue),
		subs:   subs,
		sender: sender,
		log:    log,
		tracer: otel.GetTracerProvider().Tracer("notification"),
		now:    time.Now,
	}
}

// Start launches the worker goroutines. They exit when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.size; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.log.Debugw("push worker started", "worker", id)
	for {
		select {
		case job := <-d.jobs:
			res := d.Deliver(ctx, job)
			d.log.Debugw("push job done", "worker", id, "user", job.UserID, "sent", res.Sent, "failed", res.Failed)
		case <-ctx.Done():
			d.log.Debugw("push worker shutting down", "worker", id)
			return
		}
	}
}

// Dispatch queues a job without blocking. It reports false when the queue
// is full and the job was dropped.
func (d *Dispatcher) Dispatch(job Job) bool {
	select {
	case d.jobs <- job:
		return true
	default:
		metrics.PushDeliveries.WithLabelValues("dropped").Inc()
		d.log.Warnw("push queue full, dropping job", "user", job.UserID, "tag", job.Payload.Tag)
		return false
	}
}

// Notify is shorthand for dispatching a payload to one user.
func (d *Dispatcher) Notify(userID string, p Payload) bool {
	return d.Dispatch(Job{UserID: userID, Payload: p})
}

// Jobs exposes the queue for tests.
func (d *Dispatcher) Jobs() chan Job {
	return d.jobs
}

// Deliver sends job synchronously to every active subscription of the user.
// Failed subscriptions are deactivated, successful ones touched.
func (d *Dispatcher) Deliver(ctx context.Context, job Job) Result {
	var res Result

	subs, err := d.subs.ActiveSubscriptions(ctx, job.UserID)
	if err != nil {
		d.log.Errorw("failed to load push subscriptions", "user", job.UserID, "error", err)
		return res
	}
	if len(subs) == 0 {
		return res
	}

	body, err := json.Marshal(job.Payload)
	if err != nil {
		d.log.Errorw("failed to marshal push payload", "error", err)
		return res
	}

	for _, sub := range subs {
		if err := d.send(ctx, sub, body); err != nil {
			res.Failed++
			metrics.PushDeliveries.WithLabelValues("failed").Inc()
			d.log.Warnw("push delivery failed, deactivating subscription",
				"subscription", sub.ID, "endpoint", sub.Endpoint, "error", err)
			if err := d.subs.DeactivateSubscriptionByID(ctx, sub.ID); err != nil {
				d.log.Errorw("failed to deactivate push subscription", "subscription", sub.ID, "error", err)
			}
			continue
		}
		res.Sent++
		metrics.PushDeliveries.WithLabelValues("sent").Inc()
		if err := d.subs.TouchSubscription(ctx, sub.ID, d.now()); err != nil {
			d.log.Errorw("failed to touch push subscription", "subscription", sub.ID, "error", err)
		}
	}
	return res
}

func (d *Dispatcher) send(ctx context.Context, sub model.PushSubscription, body []byte) error {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	sendCtx, span := d.tracer.Start(ctx, "Send Web Notification",
		trace.WithAttributes(attribute.String("push.subscription_id", sub.ID)))
	defer span.End()

	resp, err := d.sender.Send(sendCtx, body, wpSub)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("push service responded %d", resp.StatusCode)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
