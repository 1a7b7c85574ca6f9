package solax

import (
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/solax-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/solax-bridge/internal/inverter"
)

// Inbound topic filters, as published by Solax Wi-Fi dongles.
var (
	filterTimeSyncRequest = mqtt.MustParseFilter("reqsynctime/#")
	filterTimeSyncAck     = mqtt.MustParseFilter("Synctime/#")
	filterTelemetry       = mqtt.MustParseFilter("loc/#")
	filterAnnounce        = mqtt.MustParseFilter("base/up/#")
)

// Enqueuer accepts outbound publishes for the upstream broker.
// *mqtt.Queue implements it.
type Enqueuer interface {
	Enqueue(topic string, payload []byte, retained bool) error
}

// Injector publishes on the embedded broker as if a client had sent the
// message. *broker.Server implements it.
type Injector interface {
	Inject(topic string, payload []byte, retain bool) error
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options holds the collaborators of a Bridge.
type Options struct {
	// Model is the inverter model used for every telemetry message.
	Model *inverter.Model

	// Namespace holds the sensor and discovery topic roots.
	Namespace Namespace

	// Outbound receives every upstream publish.
	Outbound Enqueuer

	// Injector delivers time-sync responses on the embedded broker.
	Injector Injector

	// Logger is optional.
	Logger Logger

	// Clock returns the current time; defaults to time.Now.
	Clock func() time.Time

	// Location is the site time zone for time-sync responses; defaults to time.Local.
	Location *time.Location
}

// Bridge routes traffic seen on the embedded broker.
//
// It handles:
//   - reqsynctime/<serial>: replies on respsynctime/<serial> with the site clock
//   - Synctime/#: logs the inverter's acknowledgement
//   - loc/#: translates telemetry into per-sensor publishes upstream
//   - base/up/#: publishes Home Assistant discovery configs upstream
//
// The four filters are tested independently, so a topic matching several
// runs each handler. Unmatched topics are ignored. Delivery on the embedded
// broker is never affected.
//
// Thread Safety: the Bridge holds no mutable state besides atomic counters
// and is safe for concurrent use by every broker connection.
type Bridge struct {
	model    *inverter.Model
	ns       Namespace
	outbound Enqueuer
	injector Injector
	logger   Logger
	clock    func() time.Time
	loc      *time.Location

	stats counters
}

// New creates a bridge.
func New(opts Options) (*Bridge, error) {
	if opts.Model == nil {
		return nil, errors.New("solax: model is required")
	}
	if opts.Outbound == nil {
		return nil, errors.New("solax: outbound enqueuer is required")
	}
	if opts.Injector == nil {
		return nil, errors.New("solax: injector is required")
	}
	if opts.Namespace.SensorRoot == "" || opts.Namespace.DiscoveryRoot == "" {
		return nil, errors.New("solax: sensor and discovery roots are required")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	return &Bridge{
		model:    opts.Model,
		ns:       opts.Namespace,
		outbound: opts.Outbound,
		injector: opts.Injector,
		logger:   opts.Logger,
		clock:    opts.Clock,
		loc:      opts.Location,
	}, nil
}

// Model returns the configured inverter model.
func (b *Bridge) Model() *inverter.Model {
	return b.model
}

// Namespace returns the configured topic roots.
func (b *Bridge) Namespace() Namespace {
	return b.ns
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	return b.stats.snapshot()
}

// InterceptPublish implements broker.Interceptor.
func (b *Bridge) InterceptPublish(clientID, topic string, payload []byte) {
	if filterTimeSyncRequest.Match(topic) {
		b.guard("timesync", clientID, topic, func() error {
			return b.handleTimeSync(topic)
		})
	}
	if filterTimeSyncAck.Match(topic) {
		b.guard("synctime", clientID, topic, func() error {
			b.stats.timeSyncAcks.Add(1)
			b.logInfo("time sync acknowledged", "client", clientID, "topic", topic, "payload", string(payload))
			return nil
		})
	}
	if filterTelemetry.Match(topic) {
		b.guard("telemetry", clientID, topic, func() error {
			return b.handleTelemetry(topic, payload)
		})
	}
	if filterAnnounce.Match(topic) {
		b.guard("discovery", clientID, topic, func() error {
			return b.handleAnnounce()
		})
	}
}

// ObserveSubscription implements broker.Interceptor.
func (b *Bridge) ObserveSubscription(clientID, filter string) {
	b.stats.subscriptions.Add(1)
	b.logInfo("client subscribed", "client", clientID, "filter", filter)
}

// guard runs one route handler, logging its error by kind and turning a
// panic into a logged internal error so the broker connection survives.
func (b *Bridge) guard(route, clientID, topic string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			b.stats.countError(KindInternal)
			b.logErrorKind(route, clientID, topic, KindInternal, fmt.Errorf("%w: %v", ErrHandlerPanic, r))
		}
	}()

	if err := fn(); err != nil {
		kind := errorKind(err)
		b.stats.countError(kind)
		b.logErrorKind(route, clientID, topic, kind, err)
	}
}

// handleTimeSync answers reqsynctime/<serial> on the embedded broker.
func (b *Bridge) handleTimeSync(topic string) error {
	b.stats.timeSyncRequests.Add(1)

	serial := filterTimeSyncRequest.Suffix(topic)
	if serial == "" {
		return ErrMissingSerial
	}

	respTopic, payload := TimeSyncResponse(serial, b.clock().In(b.loc))
	if err := b.injector.Inject(respTopic, payload, false); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInjectFailed, respTopic, err)
	}

	b.logInfo("time sync sent", "topic", respTopic, "payload", string(payload))
	return nil
}

// handleTelemetry publishes the status and then either the live sensor
// values or, for a sleeping inverter, the declared defaults.
func (b *Bridge) handleTelemetry(topic string, payload []byte) error {
	b.stats.telemetryMessages.Add(1)
	b.logInfo("telemetry received", "topic", topic, "payload", string(payload))

	p, err := inverter.ParsePayload(payload)
	if err != nil {
		return err
	}

	t, translateErr := Translate(b.model, p)
	if t == nil {
		return translateErr
	}

	status := t.Status
	b.stats.lastStatus.Store(&status)
	b.stats.lastTelemetry.Store(b.clock().UnixNano())

	// A declared status sensor makes the status topic a retained sensor
	// state; it is published once, ahead of the readings.
	_, statusSensor := b.model.Sensor(inverter.StatusIdentifier)

	var errs []error
	if err := b.enqueue(b.ns.StatusTopic(), []byte(t.Status), statusSensor); err != nil {
		errs = append(errs, err)
	}
	for _, r := range t.Readings {
		if r.ID == inverter.StatusIdentifier {
			continue
		}
		if err := b.enqueue(b.ns.SensorTopic(r.ID), []byte(r.Value), true); err != nil {
			errs = append(errs, err)
		}
	}

	b.logDebug("telemetry translated",
		"status", t.Status,
		"active", t.Active,
		"readings", len(t.Readings),
	)

	if translateErr != nil {
		errs = append([]error{translateErr}, errs...)
	}
	return errors.Join(errs...)
}

// handleAnnounce publishes every discovery config, retained.
func (b *Bridge) handleAnnounce() error {
	b.stats.discoveryRequests.Add(1)

	msgs := BuildDiscovery(b.model, b.ns)
	var errs []error
	for _, m := range msgs {
		if err := b.enqueue(m.Topic, m.Payload, true); err != nil {
			errs = append(errs, err)
		}
	}

	b.logInfo("discovery published", "configs", len(msgs)-len(errs), "model", b.model.Model)
	return errors.Join(errs...)
}

func (b *Bridge) enqueue(topic string, payload []byte, retained bool) error {
	if err := b.outbound.Enqueue(topic, payload, retained); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrEnqueueFailed, topic, err)
	}
	b.stats.published.Add(1)
	return nil
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logErrorKind(route, clientID, topic, kind string, err error) {
	if b.logger != nil {
		b.logger.Warn("message handling failed",
			"route", route,
			"client", clientID,
			"topic", topic,
			"kind", kind,
			"error", err,
		)
	}
}
