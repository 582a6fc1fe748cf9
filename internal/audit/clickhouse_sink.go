package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createAuditTable = `
CREATE TABLE IF NOT EXISTS admin_audit_events (
	event_id    String,
	action      LowCardinality(String),
	actor_hash  String,
	resource    LowCardinality(String),
	resource_id String,
	outcome     LowCardinality(String),
	detail      String,
	bucket      UInt16,
	date_bucket Date,
	occurred_at DateTime64(3, 'UTC')
) ENGINE = MergeTree
PARTITION BY toYYYYMM(date_bucket)
ORDER BY (bucket, occurred_at)`

const insertAuditEvent = `
INSERT INTO admin_audit_events
	(event_id, action, actor_hash, resource, resource_id, outcome, detail, bucket, date_bucket, occurred_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const summarizeAuditEvents = `
SELECT action, outcome, count() AS events, uniqExact(actor_hash) AS actors
FROM admin_audit_events
WHERE occurred_at >= ?
GROUP BY action, outcome
ORDER BY events DESC`

// Conn is satisfied by client.ClickHouseClient.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) error
	QueryRows(ctx context.Context, query string, args ...any) (driver.Rows, error)
}

type ClickHouseSink struct {
	conn Conn
}

func NewClickHouseSink(conn Conn) *ClickHouseSink {
	return &ClickHouseSink{conn: conn}
}

func (s *ClickHouseSink) Name() string { return "clickhouse" }

// EnsureSchema creates the events table if it is missing.
func (s *ClickHouseSink) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, createAuditTable); err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	return nil
}

func (s *ClickHouseSink) Write(ctx context.Context, e Event) error {
	date, err := time.Parse("2006-01-02", e.DateBucket)
	if err != nil {
		date = e.OccurredAt.UTC().Truncate(24 * time.Hour)
	}
	return s.conn.Exec(ctx, insertAuditEvent,
		e.EventID, e.Action, e.ActorHash, e.Resource, e.ResourceID,
		string(e.Outcome), e.Detail, uint16(e.Bucket), date, e.OccurredAt,
	)
}

type ActionSummary struct {
	Action  string `json:"action"`
	Outcome string `json:"outcome"`
	Events  uint64 `json:"events"`
	Actors  uint64 `json:"actors"`
}

// Summary counts events and distinct actors per action since the given time.
func (s *ClickHouseSink) Summary(ctx context.Context, since time.Time) ([]ActionSummary, error) {
	rows, err := s.conn.QueryRows(ctx, summarizeAuditEvents, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query audit summary: %w", err)
	}
	defer rows.Close()

	var out []ActionSummary
	for rows.Next() {
		var a ActionSummary
		if err := rows.Scan(&a.Action, &a.Outcome, &a.Events, &a.Actors); err != nil {
			return nil, fmt.Errorf("scan audit summary: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read audit summary: %w", err)
	}
	return out, nil
}
