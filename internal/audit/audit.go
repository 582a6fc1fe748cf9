// Package audit records what admins do through the console. Events carry
// a keyed fingerprint of the actor instead of the address and fan out to
// every configured sink; a failing sink is logged and never blocks the
// action being audited.
package audit

import (
	"context"
	"time"

	"admin-console/internal/bucketing"
	"admin-console/internal/hashing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeDenied  Outcome = "denied"
)

const sinkTimeout = 3 * time.Second

type Event struct {
	EventID    string    `json:"event_id"`
	Action     string    `json:"action"`
	ActorHash  string    `json:"actor_hash"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	Bucket     int       `json:"bucket"`
	DateBucket string    `json:"date_bucket"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Sink interface {
	Name() string
	Write(ctx context.Context, e Event) error
}

// Entry is what callers report; the recorder fills in the rest.
type Entry struct {
	Action     string
	Actor      string
	Resource   string
	ResourceID string
	Outcome    Outcome
	Detail     string
}

type Recorder struct {
	sinks   []Sink
	hasher  *hashing.Hasher
	buckets *bucketing.BucketingManager
	logger  *zap.Logger
	now     func() time.Time
}

func NewRecorder(hasher *hashing.Hasher, buckets *bucketing.BucketingManager, logger *zap.Logger, sinks ...Sink) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		sinks:   sinks,
		hasher:  hasher,
		buckets: buckets,
		logger:  logger,
		now:     time.Now,
	}
}

// Record builds the event and writes it to every sink. It returns the
// event for callers that want to echo its id.
func (r *Recorder) Record(ctx context.Context, entry Entry) Event {
	at := r.now().UTC()
	actor := r.hasher.Fingerprint(entry.Actor)
	assignment := r.buckets.Assign(actor, at)

	e := Event{
		EventID:    uuid.NewString(),
		Action:     entry.Action,
		ActorHash:  actor,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
		Outcome:    entry.Outcome,
		Detail:     entry.Detail,
		Bucket:     assignment.Bucket,
		DateBucket: assignment.DateBucket,
		OccurredAt: at,
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeSuccess
	}

	// detached from request cancellation
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()
	for _, s := range r.sinks {
		if err := s.Write(sinkCtx, e); err != nil {
			r.logger.Warn("Audit sink write failed",
				zap.String("sink", s.Name()),
				zap.String("action", e.Action),
				zap.Error(err),
			)
		}
	}
	return e
}

// LogSink writes events to the process logger.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Write(_ context.Context, e Event) error {
	s.logger.Info("Audit event",
		zap.String("event_id", e.EventID),
		zap.String("action", e.Action),
		zap.String("actor_hash", e.ActorHash),
		zap.String("resource", e.Resource),
		zap.String("resource_id", e.ResourceID),
		zap.String("outcome", string(e.Outcome)),
	)
	return nil
}
