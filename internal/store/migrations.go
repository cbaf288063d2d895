package store

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration represents a schema migration step.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// MigrationStatus reports the current and available migration versions.
type MigrationStatus struct {
	CurrentVersion   int             `json:"current_version" yaml:"current_version"`
	AvailableVersion int             `json:"available_version" yaml:"available_version"`
	LegacyLayout     bool            `json:"legacy_layout,omitempty" yaml:"legacy_layout,omitempty"`
	Pending          []MigrationInfo `json:"pending" yaml:"pending"`
}

// MigrationInfo describes a single migration.
type MigrationInfo struct {
	Version     int    `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
}

const filesTableSQL = `
CREATE TABLE IF NOT EXISTS files (
  path TEXT PRIMARY KEY,
  mime TEXT NOT NULL,
  date_updated TEXT NOT NULL,
  location TEXT NOT NULL DEFAULT 'inline' CHECK (location IN ('inline', 'offloaded')),
  content BLOB,
  CHECK ((location = 'inline' AND content IS NOT NULL) OR (location = 'offloaded' AND content IS NULL))
);
`

// migrations is the ordered list of all schema migrations.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema: files table with explicit location column",
		SQL:         filesTableSQL,
	},
	{
		Version:     2,
		Description: "index inline rows by age for offload batch selection",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_files_location_updated ON files(location, date_updated);
`,
	},
}

// legacyConversionSQL rewrites a files table that marks offloaded rows with
// the literal content 'in-s3' into the location-column layout.
const legacyConversionSQL = `
ALTER TABLE files RENAME TO files_legacy;
` + filesTableSQL + `
INSERT INTO files (path, mime, date_updated, location, content)
	SELECT
		path,
		COALESCE(mime, 'application/octet-stream'),
		COALESCE(CAST(date_updated AS TEXT), strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
		CASE WHEN CAST(content AS BLOB) = CAST('in-s3' AS BLOB) THEN 'offloaded' ELSE 'inline' END,
		CASE WHEN CAST(content AS BLOB) = CAST('in-s3' AS BLOB) THEN NULL ELSE COALESCE(CAST(content AS BLOB), X'') END
	FROM files_legacy;
DROP TABLE files_legacy;
`

const migrationsTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at TEXT NOT NULL
);
`

// ensureMigrationsTable creates the schema_migrations table if it doesn't exist.
func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(migrationsTableSQL)
	return err
}

// currentVersion returns the highest applied migration version, or 0 if none.
func currentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// detectLegacyFilesTable reports whether a files table exists that predates
// the migration framework, i.e. one without the location column and with no
// recorded migrations.
func detectLegacyFilesTable(db *sql.DB) (bool, error) {
	var filesExist int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='files'").Scan(&filesExist)
	if err != nil {
		return false, err
	}
	if filesExist == 0 {
		return false, nil
	}

	var hasLocation int
	err = db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('files') WHERE name = 'location'").Scan(&hasLocation)
	if err != nil {
		return false, err
	}
	if hasLocation > 0 {
		return false, nil
	}

	var migrationsExist int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_migrations'").Scan(&migrationsExist)
	if err != nil {
		return false, err
	}
	if migrationsExist == 0 {
		return true, nil
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func sortedMigrations() []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return sorted
}

// convertLegacy rewrites a legacy files table and stamps migration 1.
func convertLegacy(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin legacy conversion: %w", err)
	}
	if _, err := tx.Exec(legacyConversionSQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("convert legacy files table: %w", err)
	}
	if _, err := tx.Exec("INSERT OR IGNORE INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))", 1); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("stamp legacy conversion: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit legacy conversion: %w", err)
	}
	return nil
}

// runMigrations applies all pending migrations in order.
func runMigrations(db *sql.DB) error {
	// Detect legacy layouts BEFORE creating the migrations table.
	legacy, err := detectLegacyFilesTable(db)
	if err != nil {
		return fmt.Errorf("detect legacy files table: %w", err)
	}

	if err := ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	if legacy {
		if err := convertLegacy(db); err != nil {
			return err
		}
	}

	current, err := currentVersion(db)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range sortedMigrations() {
		if m.Version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))", m.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// MigrationPlan returns the current migration status without applying anything.
func MigrationPlan(db *sql.DB) (*MigrationStatus, error) {
	legacy, err := detectLegacyFilesTable(db)
	if err != nil {
		return nil, err
	}

	if err := ensureMigrationsTable(db); err != nil {
		return nil, err
	}

	current, err := currentVersion(db)
	if err != nil {
		return nil, err
	}

	sorted := sortedMigrations()
	available := 0
	if len(sorted) > 0 {
		available = sorted[len(sorted)-1].Version
	}

	var pending []MigrationInfo
	if legacy {
		pending = append(pending, MigrationInfo{Version: 1, Description: "convert legacy 'in-s3' marker rows to the location column"})
	}
	for _, m := range sorted {
		if m.Version <= current || (legacy && m.Version == 1) {
			continue
		}
		pending = append(pending, MigrationInfo{Version: m.Version, Description: m.Description})
	}

	return &MigrationStatus{
		CurrentVersion:   current,
		AvailableVersion: available,
		LegacyLayout:     legacy,
		Pending:          pending,
	}, nil
}
