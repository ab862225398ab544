package otel

import (
	"context"
	"errors"
	"fmt"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is satisfied by *goAccount.Engine.
type MetricsSource interface {
	MetricsSnapshot() goAccount.MetricsSnapshot
	AuditDropped() uint64
}

// Instrument names. Engine counters are folded into a few instruments and
// told apart by attributes.
const (
	LoginAttempts     = "goaccount.login.attempts"
	RecoveryEvents    = "goaccount.recovery.events"
	AccountOperations = "goaccount.account.operations"
	PasswordEvents    = "goaccount.password.events"
	AdminLists        = "goaccount.admin.lists"
	LoginLatency      = "goaccount.login.latency.buckets"
	LoginLatencyCount = "goaccount.login.latency.count"
	AuditDropped      = "goaccount.audit.dropped"
)

type series struct {
	instrument string
	attrs      attribute.Set
}

func attrs(kv ...attribute.KeyValue) attribute.Set { return attribute.NewSet(kv...) }

var counterSeries = map[goAccount.MetricID]series{
	goAccount.MetricLoginSuccess:             {LoginAttempts, attrs(attribute.String("outcome", "success"))},
	goAccount.MetricLoginFailure:             {LoginAttempts, attrs(attribute.String("outcome", "failure"))},
	goAccount.MetricLoginRateLimited:         {LoginAttempts, attrs(attribute.String("outcome", "rate_limited"))},
	goAccount.MetricRecoveryRequest:          {RecoveryEvents, attrs(attribute.String("stage", "request"), attribute.String("outcome", "issued"))},
	goAccount.MetricRecoveryConfirmSuccess:   {RecoveryEvents, attrs(attribute.String("stage", "confirm"), attribute.String("outcome", "success"))},
	goAccount.MetricRecoveryConfirmFailure:   {RecoveryEvents, attrs(attribute.String("stage", "confirm"), attribute.String("outcome", "rejected"))},
	goAccount.MetricRecoveryRateLimited:      {RecoveryEvents, attrs(attribute.String("stage", "any"), attribute.String("outcome", "rate_limited"))},
	goAccount.MetricRecoveryAttemptsExceeded: {RecoveryEvents, attrs(attribute.String("stage", "confirm"), attribute.String("outcome", "attempts_exceeded"))},
	goAccount.MetricAccountCreated:           {AccountOperations, attrs(attribute.String("op", "created"))},
	goAccount.MetricAccountDuplicate:         {AccountOperations, attrs(attribute.String("op", "duplicate"))},
	goAccount.MetricAccountDeleted:           {AccountOperations, attrs(attribute.String("op", "deleted"))},
	goAccount.MetricAccountDisabled:          {AccountOperations, attrs(attribute.String("op", "disabled"))},
	goAccount.MetricPasswordRehashed:         {PasswordEvents, attrs(attribute.String("event", "rehashed"))},
	goAccount.MetricPasswordChangeSuccess:    {PasswordEvents, attrs(attribute.String("event", "changed"))},
	goAccount.MetricPasswordChangeInvalidOld: {PasswordEvents, attrs(attribute.String("event", "invalid_old"))},
	goAccount.MetricAdminList:                {AdminLists, attrs()},
}

// Exporter observes engine counters on every collection cycle of the
// meter's provider.
type Exporter struct {
	source       MetricsSource
	registration metric.Registration

	counters     map[string]metric.Int64ObservableCounter
	latency      metric.Int64ObservableGauge
	latencyCount metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter
}

// New creates the instruments and registers a single callback reading
// source.
func New(meter metric.Meter, source MetricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:   source,
		counters: make(map[string]metric.Int64ObservableCounter),
	}
	var observables []metric.Observable

	help := map[string]string{
		LoginAttempts:     "Login attempts by outcome.",
		RecoveryEvents:    "Recovery protocol events by stage and outcome.",
		AccountOperations: "Account lifecycle operations.",
		PasswordEvents:    "Password changes and rehashes.",
		AdminLists:        "Administrative account list calls.",
	}
	for _, def := range internaldefs.CounterDefs {
		s, ok := counterSeries[def.ID]
		if !ok {
			return nil, fmt.Errorf("no series for counter %s", def.Name)
		}
		if _, done := e.counters[s.instrument]; done {
			continue
		}
		ins, err := meter.Int64ObservableCounter(s.instrument, metric.WithDescription(help[s.instrument]))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", s.instrument, err)
		}
		e.counters[s.instrument] = ins
		observables = append(observables, ins)
	}

	var err error
	if e.latency, err = meter.Int64ObservableGauge(LoginLatency,
		metric.WithDescription("Cumulative login latency bucket counts, labelled by upper bound."),
		metric.WithUnit("{login}"),
	); err != nil {
		return nil, fmt.Errorf("create gauge %s: %w", LoginLatency, err)
	}
	if e.latencyCount, err = meter.Int64ObservableGauge(LoginLatencyCount,
		metric.WithDescription("Timed logins."),
	); err != nil {
		return nil, fmt.Errorf("create gauge %s: %w", LoginLatencyCount, err)
	}
	if e.auditDropped, err = meter.Int64ObservableCounter(AuditDropped,
		metric.WithDescription("Audit events dropped under dispatcher backpressure."),
	); err != nil {
		return nil, fmt.Errorf("create counter %s: %w", AuditDropped, err)
	}
	observables = append(observables, e.latency, e.latencyCount, e.auditDropped)

	if e.registration, err = meter.RegisterCallback(e.observe, observables...); err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for _, def := range internaldefs.CounterDefs {
		s := counterSeries[def.ID]
		o.ObserveInt64(e.counters[s.instrument], int64(snap.Counters[def.ID]), metric.WithAttributeSet(s.attrs))
	}

	if raw, ok := snap.Histograms[goAccount.MetricLoginLatency]; ok {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, bound := range internaldefs.HistogramBounds {
			o.ObserveInt64(e.latency, int64(cumulative[i]), metric.WithAttributes(attribute.String("le", bound)))
		}
		o.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]))
	}

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback. The instruments stay with the meter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
