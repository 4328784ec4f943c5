// Package auditlog is an optional, best-effort request audit trail backed
// by Postgres. A tile request's outcome is recorded fire-and-forget; the
// logger never blocks tile serving and swallows its own write failures
// (logged, not propagated) since audit logging is not on the critical path.
package auditlog

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Entry describes one completed tile request.
type Entry struct {
	Z, X, Y     int
	Style       string
	RequestType string
	Indexes     []string
	StatusCode  int
	ErrorKind   string
	DurationMS  int64
	RequestedAt time.Time
}

// Logger writes Entry records to Postgres, never blocking the caller for
// longer than the write itself and never surfacing write errors upward.
type Logger struct {
	db     *sql.DB
	logger *logrus.Logger
}

// New wraps an already-connected database handle. The caller is expected to
// have applied any schema migration for the tile_requests table out of
// band; a missing table degrades to logged write failures, not a crash.
func New(db *sql.DB, logger *logrus.Logger) *Logger {
	return &Logger{db: db, logger: logger}
}

const insertStatement = `
	INSERT INTO tile_requests
		(z, x, y, style, request_type, indexes, status_code, error_kind, duration_ms, requested_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Record inserts an audit entry. Failures are logged and discarded; callers
// should invoke this from a goroutine or otherwise treat it as fire-and-forget.
func (l *Logger) Record(ctx context.Context, e Entry) {
	if l == nil || l.db == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := l.db.ExecContext(ctx, insertStatement,
		e.Z, e.X, e.Y, e.Style, e.RequestType, pq.Array(e.Indexes),
		e.StatusCode, e.ErrorKind, e.DurationMS, e.RequestedAt)
	if err != nil {
		l.logger.WithError(err).Warn("failed to write tile request audit log entry")
	}
}
