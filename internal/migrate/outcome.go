package migrate

import (
	"time"

	"github.com/pgEdge/modmigrate/internal/engine"
	"github.com/pgEdge/modmigrate/internal/housekeeping"
	"github.com/pgEdge/modmigrate/internal/version"
)

// Outcome tracks what happened to a single module during a run.
type Outcome struct {
	Module           string               `json:"module"`
	Table            string               `json:"table"`
	Locations        []string             `json:"locations"`
	Successful       bool                 `json:"successful"`
	Skipped          bool                 `json:"skipped,omitempty"`
	StartedAt        time.Time            `json:"started_at"`
	CompletedAt      time.Time            `json:"completed_at"`
	Result           *engine.Result       `json:"result,omitempty"`
	Housekeeping     *housekeeping.Result `json:"housekeeping,omitempty"`
	RunByVersionInfo *version.Info        `json:"run_by_version_info,omitempty"`
	Error            string               `json:"error,omitempty"`
}

func (o *Outcome) Duration() time.Duration {
	return o.CompletedAt.Sub(o.StartedAt)
}
