// Package audit persists auth events to PostgreSQL.
package audit

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Event is one recorded auth event
type Event struct {
	ID        int       `db:"id" json:"id"`
	Kind      string    `db:"kind" json:"kind"` // login, register, logout
	Email     string    `db:"email" json:"email"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	Success   bool      `db:"success" json:"success"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Recorder writes auth events. Recording is best-effort: a failed insert is
// logged and never fails the flow that produced the event.
type Recorder struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRecorder creates an audit recorder
func NewRecorder(db *sqlx.DB, logger *zap.Logger) *Recorder {
	return &Recorder{db: db, logger: logger}
}

// Record persists one auth event
func (r *Recorder) Record(ctx context.Context, kind, email, ipAddress string, success bool) {
	query := `INSERT INTO auth_events (kind, email, ip_address, success, created_at)
			  VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.ExecContext(ctx, query, kind, email, ipAddress, success, time.Now()); err != nil {
		r.logger.Warn("failed to record auth event",
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}

// RecentFailures counts failed login events for an email within the window.
// Backs operator tooling; the live limiter runs on Redis.
func (r *Recorder) RecentFailures(ctx context.Context, email string, window time.Duration) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM auth_events
			  WHERE kind = 'login' AND email = $1 AND success = false AND created_at > $2`

	err := r.db.GetContext(ctx, &count, query, email, time.Now().Add(-window))
	if err != nil {
		return 0, err
	}
	return count, nil
}
