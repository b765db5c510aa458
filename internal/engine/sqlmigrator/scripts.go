package sqlmigrator

import (
	"errors"
	"fmt"
	"hash/crc32"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/pgEdge/modmigrate/internal/engine"
	"github.com/pgEdge/modmigrate/internal/location"
)

var (
	ErrInvalidVersion   = errors.New("invalid migration version")
	ErrDuplicateVersion = errors.New("duplicate migration version")
	ErrPlaceholder      = errors.New("unresolved placeholder")
)

type script struct {
	kind        engine.MigrationType
	version     string
	description string
	name        string
	path        string
	sql         string
	checksum    int64
}

func (s script) number() int {
	n, _ := strconv.Atoi(s.version)
	return n
}

// loadScripts reads every script of the given kind from the configured
// locations. Versioned scripts are ordered by version and repeatable scripts
// by description.
func loadScripts(fs afero.Fs, scanner *location.Scanner, cfg engine.Configuration, kind engine.MigrationType) ([]script, error) {
	pattern := cfg.VersionedPattern()
	if kind == engine.MigrationTypeRepeatable {
		pattern = cfg.RepeatablePattern()
	}
	resources, err := scanner.Scan(cfg.Locations, pattern)
	if err != nil {
		return nil, err
	}

	scripts := make([]script, 0, len(resources))
	for _, res := range resources {
		if kind == engine.MigrationTypeVersioned {
			if _, err := strconv.Atoi(res.Version); err != nil {
				return nil, fmt.Errorf("%w: %q in %s, versions must be integers", ErrInvalidVersion, res.Version, res.Path)
			}
		}
		raw, err := afero.ReadFile(fs, res.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %q: %w", res.Path, err)
		}
		text, err := decode(raw, cfg.Encoding)
		if err != nil {
			return nil, fmt.Errorf("failed to decode migration %q: %w", res.Path, err)
		}
		sql, err := replacePlaceholders(text, cfg, res.Name)
		if err != nil {
			return nil, fmt.Errorf("migration %q: %w", res.Path, err)
		}
		s := script{
			kind:        kind,
			version:     res.Version,
			description: res.Description,
			name:        res.Name,
			path:        res.Path,
			sql:         sql,
			checksum:    int64(crc32.ChecksumIEEE([]byte(text))),
		}
		if kind == engine.MigrationTypeRepeatable {
			s.version = strconv.FormatInt(s.checksum, 10)
		}
		scripts = append(scripts, s)
	}

	switch kind {
	case engine.MigrationTypeVersioned:
		slices.SortStableFunc(scripts, func(a, b script) int {
			return a.number() - b.number()
		})
		for i := 1; i < len(scripts); i++ {
			if scripts[i].number() == scripts[i-1].number() {
				return nil, fmt.Errorf("%w: version %s is used by both %s and %s",
					ErrDuplicateVersion, scripts[i].version, scripts[i-1].path, scripts[i].path)
			}
		}
	case engine.MigrationTypeRepeatable:
		slices.SortStableFunc(scripts, func(a, b script) int {
			return strings.Compare(a.description, b.description)
		})
	}

	return scripts, nil
}

func decode(raw []byte, encoding string) (string, error) {
	if encoding != "" {
		enc, err := htmlindex.Get(encoding)
		if err != nil {
			return "", fmt.Errorf("unsupported encoding %q: %w", encoding, err)
		}
		if enc != unicode.UTF8 {
			raw, err = enc.NewDecoder().Bytes(raw)
			if err != nil {
				return "", err
			}
		}
	}
	return strings.TrimPrefix(string(raw), "\ufeff"), nil
}

// replacePlaceholders substitutes <prefix>name<suffix> with the configured
// values. A few built-in names describe the module being migrated.
func replacePlaceholders(text string, cfg engine.Configuration, filename string) (string, error) {
	prefix, suffix := cfg.PlaceholderPrefix, cfg.PlaceholderSuffix
	if !cfg.PlaceholderReplacement || prefix == "" || suffix == "" {
		return text, nil
	}

	values := map[string]string{
		"flyway:defaultSchema": cfg.Schema(),
		"flyway:table":         cfg.Table,
		"flyway:filename":      filename,
		"flyway:module":        cfg.Module,
	}
	if cfg.DataSource != nil {
		values["flyway:user"] = cfg.DataSource.User()
	}
	for k, v := range cfg.Placeholders {
		values[k] = v
	}

	var b strings.Builder
	rest := text
	for {
		start := strings.Index(rest, prefix)
		if start < 0 {
			break
		}
		nameStart := start + len(prefix)
		end := strings.Index(rest[nameStart:], suffix)
		if end < 0 {
			break
		}
		name := rest[nameStart : nameStart+end]
		value, ok := values[name]
		if !ok {
			return "", fmt.Errorf("%w: no value provided for %s%s%s", ErrPlaceholder, prefix, name, suffix)
		}
		b.WriteString(rest[:start])
		b.WriteString(value)
		rest = rest[nameStart+end+len(suffix):]
	}
	b.WriteString(rest)

	return b.String(), nil
}
