package sqlmigrator

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aatuh/migrator"

	"github.com/pgEdge/modmigrate/internal/datasource"
	"github.com/pgEdge/modmigrate/internal/engine"
)

var _ migrator.HistoryManager = (*historyManager)(nil)

// historyRecord is a row of the schema history table.
type historyRecord struct {
	migrationName string
	version       string
	description   string
	kind          engine.MigrationType
	checksum      int64
}

func (r historyRecord) number() int {
	n, _ := strconv.Atoi(r.version)
	return n
}

// historyManager stores the schema history for one module. A single table can
// hold the history of several modules, keyed by migration name.
type historyManager struct {
	vendor      datasource.Vendor
	tablespace  string
	installedBy string

	scripts  map[string]script
	started  map[string]time.Time
	recorded []engine.AppliedMigration
}

func newHistoryManager(vendor datasource.Vendor, tablespace, installedBy string) *historyManager {
	return &historyManager{
		vendor:      vendor,
		tablespace:  tablespace,
		installedBy: installedBy,
		scripts:     map[string]script{},
		started:     map[string]time.Time{},
	}
}

func scriptKey(migrationName, version string) string {
	return migrationName + "@" + version
}

// track registers a script so that its metadata is recorded when the
// migration completes.
func (h *historyManager) track(migrationName string, s script) {
	h.scripts[scriptKey(migrationName, s.version)] = s
}

func (h *historyManager) start(migrationName, version string) {
	h.started[scriptKey(migrationName, version)] = time.Now()
}

func (h *historyManager) bind(n int) string {
	if h.vendor == datasource.VendorPostgreSQL {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (h *historyManager) binds(count int) string {
	params := make([]string, count)
	for i := range params {
		params[i] = h.bind(i + 1)
	}
	return strings.Join(params, ", ")
}

func (h *historyManager) EnsureHistoryTable(ctx context.Context, db *sql.DB, tableName string) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		migration_name VARCHAR(255) NOT NULL,
		version VARCHAR(50) NOT NULL,
		description VARCHAR(200) NOT NULL,
		type VARCHAR(20) NOT NULL,
		script VARCHAR(1000),
		checksum BIGINT,
		installed_by VARCHAR(100),
		installed_on TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		execution_time INTEGER NOT NULL,
		PRIMARY KEY (migration_name, version))`, tableName)
	if h.tablespace != "" && h.vendor == datasource.VendorPostgreSQL {
		query += " TABLESPACE " + h.tablespace
	}
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create history table %s: %w", tableName, err)
	}
	return nil
}

func (h *historyManager) RecordMigration(
	ctx context.Context,
	exec migrator.Executor,
	tableName string,
	mig migrator.Migration,
	migrationName string,
) error {
	key := scriptKey(migrationName, mig.Version)
	s, ok := h.scripts[key]
	if !ok {
		s = script{kind: engine.MigrationTypeVersioned, version: mig.Version, description: mig.Name}
	}
	var elapsed time.Duration
	if start, ok := h.started[key]; ok {
		elapsed = time.Since(start)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (migration_name, version, description, type, script, checksum, installed_by, installed_on, execution_time) VALUES (%s)`,
		tableName, h.binds(9),
	)
	_, err := exec.ExecContext(ctx, query,
		migrationName,
		mig.Version,
		s.description,
		string(s.kind),
		s.name,
		s.checksum,
		h.installedBy,
		time.Now().UTC(),
		elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", mig.Version, err)
	}

	applied := engine.AppliedMigration{
		Type:        s.kind,
		Description: s.description,
		Script:      s.name,
		Checksum:    s.checksum,
		Duration:    elapsed,
	}
	if s.kind != engine.MigrationTypeRepeatable {
		applied.Version = mig.Version
	}
	h.recorded = append(h.recorded, applied)

	return nil
}

func (h *historyManager) RemoveMigration(
	ctx context.Context,
	exec migrator.Executor,
	tableName string,
	mig migrator.Migration,
	migrationName string,
) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE migration_name = %s AND version = %s`,
		tableName, h.bind(1), h.bind(2))
	_, err := exec.ExecContext(ctx, query, migrationName, mig.Version)
	return err
}

func (h *historyManager) AppliedMigrations(
	ctx context.Context,
	db *sql.DB,
	tableName string,
	migrationName string,
) (map[string]bool, error) {
	records, err := h.history(ctx, db, tableName, migrationName)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(records))
	for _, r := range records {
		applied[r.version] = true
	}
	return applied, nil
}

func (h *historyManager) history(ctx context.Context, db *sql.DB, tableName, migrationName string) ([]historyRecord, error) {
	query := fmt.Sprintf(
		`SELECT migration_name, version, description, type, checksum FROM %s WHERE migration_name = %s`,
		tableName, h.bind(1),
	)
	rows, err := db.QueryContext(ctx, query, migrationName)
	if err != nil {
		return nil, fmt.Errorf("failed to query history table %s: %w", tableName, err)
	}
	defer rows.Close()

	var records []historyRecord
	for rows.Next() {
		var (
			r        historyRecord
			kind     string
			checksum sql.NullInt64
		)
		if err := rows.Scan(&r.migrationName, &r.version, &r.description, &kind, &checksum); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		r.kind = engine.MigrationType(kind)
		r.checksum = checksum.Int64
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history table %s: %w", tableName, err)
	}

	return records, nil
}
