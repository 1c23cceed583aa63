package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"

	"github.com/custodia-labs/docscan/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
)

// timeLayout sorts lexically in the same order as the instants it encodes.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const searchCounter = "searches"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction("fold_contains", 2, foldContains)
}

// foldContains reports whether the first argument contains the second,
// ignoring case. The query argument is expected to be normalised.
func foldContains(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	text, query := valueString(args[0]), valueString(args[1])
	if domain.ContainsFold(text, query) {
		return int64(1), nil
	}
	return int64(0), nil
}

func valueString(v driver.Value) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore opens (creating if needed) the database at dbPath.
// If dbPath is empty, defaults to ~/.docscan/docscan.db.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".docscan", "docscan.db")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// StatsStore returns a StatsStore interface backed by this store.
func (s *Store) StatsStore() driven.StatsStore {
	return &statsStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations, recording each applied version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, title, original_filename, stored_filename, content_hash,
	mime_type, size, language, status, meta, created_at, updated_at`

// Create inserts a document and its pages.
func (s *documentStore) Create(ctx context.Context, doc *domain.Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := s.store.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	meta, err := marshalMeta(doc.Meta)
	if err != nil {
		return "", err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE id = ?", doc.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking document: %w", err)
		}
		if exists > 0 {
			return fmt.Errorf("document %s: %w", doc.ID, domain.ErrAlreadyExists)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (`+documentColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, doc.ID, doc.Title, doc.OriginalFilename, doc.StoredFilename, doc.ContentHash,
			doc.MimeType, doc.Size, doc.Language, string(doc.Status), meta,
			formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt))
		if err != nil {
			return fmt.Errorf("inserting document: %w", err)
		}
		return insertPages(ctx, tx, doc)
	})
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}

// Get retrieves a document with its pages.
func (s *documentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	docs, err := s.query(ctx, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &docs[0], nil
}

// Save replaces the document row and all of its pages in one transaction.
func (s *documentStore) Save(ctx context.Context, doc *domain.Document) error {
	doc.UpdatedAt = s.store.now().UTC()
	meta, err := marshalMeta(doc.Meta)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE documents SET
				title = ?, original_filename = ?, stored_filename = ?, content_hash = ?,
				mime_type = ?, size = ?, language = ?, status = ?, meta = ?, updated_at = ?
			WHERE id = ?
		`, doc.Title, doc.OriginalFilename, doc.StoredFilename, doc.ContentHash,
			doc.MimeType, doc.Size, doc.Language, string(doc.Status), meta,
			formatTime(doc.UpdatedAt), doc.ID)
		if err != nil {
			return fmt.Errorf("updating document: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM pages WHERE document_id = ?", doc.ID); err != nil {
			return fmt.Errorf("clearing pages: %w", err)
		}
		return insertPages(ctx, tx, doc)
	})
}

// Count returns the number of documents.
func (s *documentStore) Count(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM documents")
}

// PageCount returns the number of pages across all documents.
func (s *documentStore) PageCount(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM pages")
}

// List returns documents, most recently updated first.
func (s *documentStore) List(ctx context.Context, limit, offset int) ([]domain.Document, error) {
	return s.query(ctx, "ORDER BY updated_at DESC, rowid DESC LIMIT ? OFFSET ?", limitArg(limit), offset)
}

// Search returns documents whose title or any page contains query.
func (s *documentStore) Search(ctx context.Context, query string, limit, offset int) ([]domain.Document, error) {
	q := domain.NormaliseQuery(query)
	if q == "" {
		return nil, nil
	}
	return s.query(ctx, `
		WHERE fold_contains(title, ?)
		   OR EXISTS (SELECT 1 FROM pages p WHERE p.document_id = documents.id AND fold_contains(p.text, ?))
		ORDER BY updated_at DESC, rowid DESC LIMIT ? OFFSET ?
	`, q, q, limitArg(limit), offset)
}

// FindByHash returns the most recent document with the given content hash.
func (s *documentStore) FindByHash(ctx context.Context, hash string) (*domain.Document, error) {
	docs, err := s.query(ctx, "WHERE content_hash = ? ORDER BY updated_at DESC LIMIT 1", hash)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &docs[0], nil
}

// ListByStatus returns all documents in the given status.
func (s *documentStore) ListByStatus(ctx context.Context, status domain.DocumentStatus) ([]domain.Document, error) {
	return s.query(ctx, "WHERE status = ? ORDER BY updated_at DESC", string(status))
}

func (s *documentStore) count(ctx context.Context, q string) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting: %w", err)
	}
	return n, nil
}

// query loads documents matching the clause, then their pages.
func (s *documentStore) query(ctx context.Context, clause string, args ...any) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents "+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	rows.Close()

	for i := range docs {
		pages, err := s.pages(ctx, docs[i].ID)
		if err != nil {
			return nil, err
		}
		docs[i].Pages = pages
	}
	return docs, nil
}

func (s *documentStore) pages(ctx context.Context, documentID string) ([]domain.Page, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT page_number, text, confidence, status, processed_at, attempts, error, word_count, char_count
		FROM pages WHERE document_id = ?
		ORDER BY page_number
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	defer rows.Close()

	var pages []domain.Page //nolint:prealloc // size unknown from query
	for rows.Next() {
		var p domain.Page
		var status string
		var processedAt, errMsg sql.NullString
		if err := rows.Scan(&p.PageNumber, &p.Text, &p.Confidence, &status, &processedAt,
			&p.Attempts, &errMsg, &p.WordCount, &p.CharCount); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		p.Status = domain.PageStatus(status)
		p.Error = errMsg.String
		if t := parseNullableTime(processedAt); !t.IsZero() {
			p.ProcessedAt = &t
		}
		pages = append(pages, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pages: %w", err)
	}
	return pages, nil
}

func (s *documentStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertPages(ctx context.Context, tx *sql.Tx, doc *domain.Document) error {
	if len(doc.Pages) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pages (document_id, page_number, text, confidence, status, processed_at,
			attempts, error, word_count, char_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range doc.Pages {
		var processedAt any
		if p.ProcessedAt != nil {
			processedAt = formatTime(*p.ProcessedAt)
		}
		if _, err := stmt.ExecContext(ctx, doc.ID, p.PageNumber, p.Text, p.Confidence,
			string(p.Status), processedAt, p.Attempts, nullString(p.Error),
			p.WordCount, p.CharCount); err != nil {
			return fmt.Errorf("saving page %d: %w", p.PageNumber, err)
		}
	}
	return nil
}

func scanDocument(sc scanner) (*domain.Document, error) {
	var doc domain.Document
	var status, createdAt, updatedAt string
	var meta sql.NullString

	if err := sc.Scan(&doc.ID, &doc.Title, &doc.OriginalFilename, &doc.StoredFilename,
		&doc.ContentHash, &doc.MimeType, &doc.Size, &doc.Language, &status, &meta,
		&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Status = domain.DocumentStatus(status)
	doc.CreatedAt = parseTime(createdAt)
	doc.UpdatedAt = parseTime(updatedAt)

	if meta.Valid && meta.String != "" {
		var m domain.DocumentMeta
		if err := json.Unmarshal([]byte(meta.String), &m); err != nil {
			return nil, fmt.Errorf("unmarshaling meta: %w", err)
		}
		doc.Meta = &m
	}
	return &doc, nil
}

func marshalMeta(meta *domain.DocumentMeta) (any, error) {
	if meta == nil {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshalling meta: %w", err)
	}
	return string(data), nil
}

// limitArg maps "no limit" to SQLite's -1.
func limitArg(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// ==================== Stats Store ====================

// statsStore implements driven.StatsStore.
type statsStore struct {
	store *Store
}

var _ driven.StatsStore = (*statsStore)(nil)

// IncrementSearches bumps the search counter atomically.
func (s *statsStore) IncrementSearches(ctx context.Context) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx, `
		INSERT INTO counters (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
		RETURNING value
	`, searchCounter).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("incrementing searches: %w", err)
	}
	return n, nil
}

// Searches returns the search counter.
func (s *statsStore) Searches(ctx context.Context) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx, "SELECT value FROM counters WHERE name = ?", searchCounter).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading searches: %w", err)
	}
	return n, nil
}
