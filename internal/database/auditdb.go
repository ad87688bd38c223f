package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/linkaudit/linkaudit/internal/model"
	_ "modernc.org/sqlite" // SQLite driver
)

// dbFileName is the name of the SQLite file created inside the
// database directory.
const dbFileName = "linkaudit.db"

// AuditDB manages the SQLite database that stores audit results.
type AuditDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures database behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool
	// EnableWAL enables Write-Ahead Logging for better concurrency.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the audit database in dbDir, creating the directory, the
// database file, and the schema as needed.
//
// Design decision: We use modernc.org/sqlite rather than mattn/go-sqlite3 because:
//  1. It is a pure Go implementation, so builds need no CGO toolchain
//  2. Cross-compilation for release binaries works out of the box
//  3. It speaks the same database/sql interface, keeping queries portable
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		}
	}

	// mode=rwc creates the file on first open; mode=rw refuses to,
	// which keeps CreateIfNotExists=false honest even if the file
	// disappears between the Stat above and the first query.
	dsn := dbPath + "?mode=rwc"
	if !opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer. One connection serializes all
	// access and avoids SQLITE_BUSY during concurrent audits.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
	}

	ctx := context.Background()

	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := adb.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (a *AuditDB) Close() error {
	return a.db.Close()
}

// Path returns the filesystem path of the database file.
func (a *AuditDB) Path() string {
	return a.dbPath
}

// createSchema creates tables and indexes if they don't exist.
func (a *AuditDB) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS audits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL,
		website_url TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		pages INTEGER DEFAULT 0,
		broken_internal INTEGER DEFAULT 0,
		broken_external INTEGER DEFAULT 0,
		unreachable INTEGER DEFAULT 0,
		duration_ms INTEGER DEFAULT 0,
		report_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audits_domain ON audits(domain);
	CREATE INDEX IF NOT EXISTS idx_audits_timestamp ON audits(timestamp);

	CREATE TABLE IF NOT EXISTS broken_links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		audit_id INTEGER NOT NULL,
		scope TEXT NOT NULL,
		source_page TEXT NOT NULL,
		href TEXT NOT NULL,
		anchor_text TEXT,
		status_code INTEGER DEFAULT 0,
		FOREIGN KEY (audit_id) REFERENCES audits(id)
	);

	CREATE INDEX IF NOT EXISTS idx_broken_links_audit ON broken_links(audit_id);
	CREATE INDEX IF NOT EXISTS idx_broken_links_href ON broken_links(href);

	CREATE TABLE IF NOT EXISTS probes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL,
		href TEXT NOT NULL,
		status_code INTEGER DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(domain, href)
	);

	CREATE INDEX IF NOT EXISTS idx_probes_domain ON probes(domain);
	`

	_, err := a.db.ExecContext(ctx, schema)
	return err
}

// SaveAudit persists a completed audit report together with its broken
// link rows, in a single transaction. It returns the ID of the new
// audits row.
//
// The audits row stores the full report as JSON so that any audit can
// be reloaded exactly as it ran; the broken_links rows duplicate just
// the report rows so comparisons can query them without unmarshaling
// every report.
func (a *AuditDB) SaveAudit(ctx context.Context, report *model.AuditReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal report: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO audits (domain, website_url, pages, broken_internal, broken_external, unreachable, duration_ms, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.Domain,
		report.WebsiteURL,
		len(report.Pages),
		len(report.BrokenInternal),
		len(report.BrokenExternal),
		report.UnreachableCount(),
		report.Duration.Milliseconds(),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert audit: %w", err)
	}

	auditID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get audit ID: %w", err)
	}

	insertRow := func(scope model.Scope, row model.ReportRow) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO broken_links (audit_id, scope, source_page, href, anchor_text, status_code)
			VALUES (?, ?, ?, ?, ?, ?)`,
			auditID, scope.String(), row.SourcePage, row.Href, row.AnchorText, row.StatusCode,
		)
		return err
	}

	for _, row := range report.InternalRows {
		if err := insertRow(model.ScopeInternal, row); err != nil {
			return 0, fmt.Errorf("failed to insert broken link: %w", err)
		}
	}
	for _, row := range report.ExternalRows {
		if err := insertRow(model.ScopeExternal, row); err != nil {
			return 0, fmt.Errorf("failed to insert broken link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit audit: %w", err)
	}

	return auditID, nil
}

// AuditMetadata summarizes a stored audit without loading the full
// report JSON.
type AuditMetadata struct {
	ID             int64         `json:"id"`
	Domain         string        `json:"domain"`
	WebsiteURL     string        `json:"website_url"`
	Timestamp      time.Time     `json:"timestamp"`
	Pages          int           `json:"pages"`
	BrokenInternal int           `json:"broken_internal"`
	BrokenExternal int           `json:"broken_external"`
	Unreachable    int           `json:"unreachable"`
	Duration       time.Duration `json:"duration"`
}

// TotalBroken returns the combined broken link count of the audit.
func (m AuditMetadata) TotalBroken() int {
	return m.BrokenInternal + m.BrokenExternal
}

// AuditHistory returns metadata for every stored audit of the domain,
// newest first.
func (a *AuditDB) AuditHistory(ctx context.Context, domain string) ([]AuditMetadata, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, domain, website_url, timestamp, pages, broken_internal, broken_external, unreachable, duration_ms
		FROM audits
		WHERE domain = ?
		ORDER BY timestamp DESC, id DESC`,
		domain,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var history []AuditMetadata
	for rows.Next() {
		meta, err := scanAuditMetadata(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, meta)
	}

	return history, rows.Err()
}

// scanAuditMetadata scans one audits row into metadata.
func scanAuditMetadata(rows *sql.Rows) (AuditMetadata, error) {
	var (
		meta       AuditMetadata
		timestamp  string
		durationMS int64
	)

	err := rows.Scan(&meta.ID, &meta.Domain, &meta.WebsiteURL, &timestamp,
		&meta.Pages, &meta.BrokenInternal, &meta.BrokenExternal, &meta.Unreachable, &durationMS)
	if err != nil {
		return AuditMetadata{}, fmt.Errorf("failed to scan audit metadata: %w", err)
	}

	meta.Timestamp = parseTimestamp(timestamp)
	meta.Duration = time.Duration(durationMS) * time.Millisecond

	return meta, nil
}

// AuditByID loads the full report stored under the given audit ID.
// It returns nil without error when no audit has that ID.
func (a *AuditDB) AuditByID(ctx context.Context, id int64) (*model.AuditReport, error) {
	var reportJSON string

	err := a.db.QueryRowContext(ctx,
		`SELECT report_json FROM audits WHERE id = ?`, id,
	).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query audit %d: %w", id, err)
	}

	var report model.AuditReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &report, nil
}

// LatestAudits loads up to n full reports for the domain, newest first.
func (a *AuditDB) LatestAudits(ctx context.Context, domain string, n int) ([]*model.AuditReport, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT report_json FROM audits
		WHERE domain = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		domain, n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest audits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reports []*model.AuditReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report model.AuditReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// ListDomains returns every domain with at least one stored audit,
// sorted alphabetically.
func (a *AuditDB) ListDomains(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT DISTINCT domain FROM audits ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var domains []string
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, domain)
	}

	return domains, rows.Err()
}

// BrokenLinkRecord is one broken link row stored for an audit.
type BrokenLinkRecord struct {
	ID         int64  `json:"id"`
	AuditID    int64  `json:"audit_id"`
	Scope      string `json:"scope"`
	SourcePage string `json:"source_page"`
	Href       string `json:"href"`
	AnchorText string `json:"anchor_text"`
	StatusCode int    `json:"status_code"`
}

// BrokenLinksByAudit returns the broken links recorded for an audit.
// Internal rows come back before external rows, matching report order.
func (a *AuditDB) BrokenLinksByAudit(ctx context.Context, auditID int64) ([]BrokenLinkRecord, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, audit_id, scope, source_page, href, anchor_text, status_code
		FROM broken_links
		WHERE audit_id = ?
		ORDER BY scope DESC, id`,
		auditID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query broken links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []BrokenLinkRecord
	for rows.Next() {
		var rec BrokenLinkRecord
		err := rows.Scan(&rec.ID, &rec.AuditID, &rec.Scope, &rec.SourcePage,
			&rec.Href, &rec.AnchorText, &rec.StatusCode)
		if err != nil {
			return nil, fmt.Errorf("failed to scan broken link: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// RecentProbe returns the stored status code for href when a probe
// newer than maxAge exists for the domain. The second return value
// reports whether such a probe was found.
func (a *AuditDB) RecentProbe(ctx context.Context, domain, href string, maxAge time.Duration) (int, bool, error) {
	modifier := fmt.Sprintf("-%d seconds", int(maxAge.Seconds()))

	var status int
	err := a.db.QueryRowContext(ctx, `
		SELECT status_code FROM probes
		WHERE domain = ? AND href = ? AND timestamp > datetime('now', ?)`,
		domain, href, modifier,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query recent probe: %w", err)
	}

	return status, true, nil
}

// RecordProbe stores the outcome of probing href, replacing any
// earlier probe of the same href for the domain.
func (a *AuditDB) RecordProbe(ctx context.Context, domain, href string, statusCode int) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO probes (domain, href, status_code)
		VALUES (?, ?, ?)
		ON CONFLICT(domain, href) DO UPDATE SET
			status_code = excluded.status_code,
			timestamp = CURRENT_TIMESTAMP`,
		domain, href, statusCode,
	)
	if err != nil {
		return fmt.Errorf("failed to record probe: %w", err)
	}

	return nil
}

// RecordProbes stores a batch of probe outcomes in one transaction.
func (a *AuditDB) RecordProbes(ctx context.Context, domain string, statuses map[string]int) error {
	if len(statuses) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO probes (domain, href, status_code)
		VALUES (?, ?, ?)
		ON CONFLICT(domain, href) DO UPDATE SET
			status_code = excluded.status_code,
			timestamp = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare probe insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for href, status := range statuses {
		if _, err := stmt.ExecContext(ctx, domain, href, status); err != nil {
			return fmt.Errorf("failed to record probe for %s: %w", href, err)
		}
	}

	return tx.Commit()
}

// timestampFormats lists the layouts SQLite may hand back for DATETIME
// columns depending on how the value was written.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a SQLite timestamp string, trying each known
// layout in turn. It returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
