// Package housekeeping removes or renames migration scripts once they have
// been applied, so that they can't be applied again by accident. Only enable
// it for deployments that own their migration directories. It must not be
// used against shared checkouts.
package housekeeping

import (
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pgEdge/modmigrate/internal/config"
	"github.com/pgEdge/modmigrate/internal/engine"
	"github.com/pgEdge/modmigrate/internal/location"
)

type Mode string

const (
	ModeNone   Mode = "none"
	ModeClear  Mode = "clear"
	ModeRename Mode = "rename"
)

// ModeFor picks the housekeeping mode from the clear and rename flags. Clear
// takes precedence.
func ModeFor(clear, rename bool) Mode {
	switch {
	case clear:
		return ModeClear
	case rename:
		return ModeRename
	default:
		return ModeNone
	}
}

type FileResult struct {
	Path   string `json:"path"`
	Target string `json:"target,omitempty"`
	Size   int64  `json:"size"`
	Error  string `json:"error,omitempty"`
}

type Result struct {
	Mode  Mode         `json:"mode"`
	Files []FileResult `json:"files,omitempty"`
}

func (r *Result) Failed() int {
	var n int
	for _, f := range r.Files {
		if f.Error != "" {
			n++
		}
	}
	return n
}

type Housekeeper struct {
	fs      afero.Fs
	scanner *location.Scanner
	logger  zerolog.Logger
}

func NewHousekeeper(fs afero.Fs, scanner *location.Scanner, logger zerolog.Logger) *Housekeeper {
	return &Housekeeper{
		fs:      fs,
		scanner: scanner,
		logger:  logger.With().Str("component", "housekeeper").Logger(),
	}
}

// Run clears or renames the versioned scripts and then the repeatable scripts
// found in the configured locations. Only scripts listed in upToDate are
// touched. Failures are logged and recorded in the result. They never stop
// the run.
func (h *Housekeeper) Run(cfg engine.Configuration, upToDate []string, mode Mode, suffix string) *Result {
	result := &Result{Mode: mode}
	if mode == ModeNone {
		return result
	}
	if suffix == "" {
		suffix = config.DefaultRenameSuffix
	}

	logger := h.logger.With().
		Str("module", cfg.Module).
		Str("mode", string(mode)).
		Logger()

	migrated := make(map[string]bool, len(upToDate))
	for _, path := range upToDate {
		migrated[path] = true
	}

	var skipped int
	for _, pattern := range []location.Pattern{cfg.VersionedPattern(), cfg.RepeatablePattern()} {
		for _, loc := range cfg.Locations {
			resources, err := h.scanner.Scan([]string{loc}, pattern)
			if err != nil {
				logger.Warn().Err(err).Str("location", loc).Msg("failed to scan location")
				result.Files = append(result.Files, FileResult{Path: loc, Error: err.Error()})
				continue
			}
			for _, res := range resources {
				if !migrated[res.Path] {
					skipped++
					logger.Debug().Str("path", res.Path).Msg("script has not been migrated, keeping it")
					continue
				}
				result.Files = append(result.Files, h.apply(logger, res, mode, suffix))
			}
		}
	}

	logger.Info().
		Int("files", len(result.Files)).
		Int("failed", result.Failed()).
		Int("skipped", skipped).
		Msg("housekeeping complete")

	return result
}

func (h *Housekeeper) apply(logger zerolog.Logger, res location.Resource, mode Mode, suffix string) FileResult {
	fr := FileResult{
		Path: res.Path,
		Size: res.Size,
	}
	var err error
	switch mode {
	case ModeClear:
		err = h.fs.Remove(res.Path)
	case ModeRename:
		fr.Target = renamed(res.Path, suffix)
		err = h.fs.Rename(res.Path, fr.Target)
	}
	if err != nil {
		fr.Error = err.Error()
		logger.Warn().Err(err).Str("path", res.Path).Msgf("failed to %s migrated script", mode)
		return fr
	}

	event := logger.Info().
		Str("path", res.Path).
		Str("size", humanize.Bytes(uint64(res.Size)))
	if fr.Target != "" {
		event = event.Str("target", fr.Target)
	}
	event.Msgf("%s migrated script", pastTense(mode))

	return fr
}

// renamed replaces the extension of path with suffix, e.g. V1__init.sql
// becomes V1__init.back.
func renamed(path, suffix string) string {
	base := filepath.Base(path)
	return filepath.Join(filepath.Dir(path), strings.TrimSuffix(base, filepath.Ext(base))+suffix)
}

func pastTense(mode Mode) string {
	if mode == ModeClear {
		return "deleted"
	}
	return "renamed"
}
