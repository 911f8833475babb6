// Package audit records mutating actions for traceability. Audit entries are
// intentionally separate from application logs because they have different
// consumers and retention requirements — application logs are ephemeral debug
// output consumed by on-call engineers, while audit entries are immutable
// records that may be subject to compliance retention policies.
//
// Writes are fire-and-forget: the triggering request never waits for, and is
// never failed by, an audit write. A dropped entry is logged and counted, not
// escalated.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/taskhive/taskhive/internal/db/models"
	"github.com/taskhive/taskhive/internal/db/repositories"
	"github.com/taskhive/taskhive/internal/safego"
	"github.com/taskhive/taskhive/internal/telemetry"
)

// writeTimeout bounds each background audit write so a stalled database
// cannot pile up goroutines forever.
const writeTimeout = 5 * time.Second

// Entry describes one mutating action to record.
type Entry struct {
	TenantID   *string
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	IPAddress  string
}

// Recorder persists audit entries to the database and, optionally, mirrors
// them to an append-only local file.
type Recorder struct {
	repo    *repositories.AuditRepository
	mirror  *FileMirror
	enabled bool
}

// NewRecorder creates a Recorder. mirror may be nil.
func NewRecorder(repo *repositories.AuditRepository, mirror *FileMirror, enabled bool) *Recorder {
	return &Recorder{repo: repo, mirror: mirror, enabled: enabled}
}

// Record dispatches the entry on a background goroutine and returns
// immediately. The write uses its own timeout-bounded context so it survives
// the request context being cancelled when the response is sent.
func (r *Recorder) Record(entry Entry) {
	if r == nil || !r.enabled {
		return
	}

	safego.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		log := &models.AuditLog{
			TenantID:   entry.TenantID,
			UserID:     entry.UserID,
			Action:     entry.Action,
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
		}
		if entry.IPAddress != "" {
			ip := entry.IPAddress
			log.IPAddress = &ip
		}

		if err := r.repo.Create(ctx, log); err != nil {
			telemetry.AuditWriteFailuresTotal.Inc()
			slog.Error("failed to write audit log",
				"action", entry.Action,
				"entity_type", entry.EntityType,
				"entity_id", entry.EntityID,
				"error", err,
			)
			return
		}

		if r.mirror != nil {
			if err := r.mirror.Write(log); err != nil {
				telemetry.AuditWriteFailuresTotal.Inc()
				slog.Error("failed to mirror audit log to file", "error", err)
			}
		}
	})
}
