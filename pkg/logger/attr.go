package logger

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jobdeck/metering/pkg/plans"
)

// Error creates an attribute for a single error under the key "error".
// Returns an empty Attr when err is nil so call sites skip the nil check.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id uuid.UUID) slog.Attr {
	return slog.String("user_id", id.String())
}

// Resource records the metered resource type under the key "resource".
func Resource(res plans.ResourceType) slog.Attr {
	return slog.String("resource", string(res))
}

// Plan records the plan identifier under the key "plan_id".
func Plan(id string) slog.Attr {
	return slog.String("plan_id", id)
}

// Amount records a consumption amount under the key "amount".
func Amount(n int64) slog.Attr {
	return slog.Int64("amount", n)
}

// Duration records an elapsed time under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
