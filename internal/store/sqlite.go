package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/journal/internal/domain"
)

//go:embed schema.sql
var schema string

const (
	// SchemaVersion is the version recorded after schema.sql is applied
	SchemaVersion = 2

	schemaComponent = "entries"
)

var (
	ErrEntryNotFound = errors.New("entry not found")
)

// Order selects the created_at ordering of a fetch
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

var validSyncModes = map[string]bool{
	"OFF":    true,
	"NORMAL": true,
	"FULL":   true,
	"EXTRA":  true,
}

const entryColumns = "id, user_id, content, created_at, themes, sentiment"

// Store handles database operations
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens the database at dbPath, applies the schema and returns a Store.
// syncMode is one of OFF, NORMAL, FULL, EXTRA or empty for the driver default.
func New(dbPath string, wal bool, syncMode string) (*Store, error) {
	dsn, err := buildDSN(dbPath, wal, syncMode)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// :memory: databases are per-connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func buildDSN(dbPath string, wal bool, syncMode string) (string, error) {
	params := url.Values{}
	if wal {
		params.Add("_journal_mode", "WAL")
	}
	if syncMode != "" {
		mode := strings.ToUpper(syncMode)
		if !validSyncModes[mode] {
			return "", fmt.Errorf("invalid sync mode %q: must be one of OFF, NORMAL, FULL, EXTRA", syncMode)
		}
		params.Add("_synchronous", mode)
	}
	params.Add("_busy_timeout", "5000")

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + params.Encode(), nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	var version int
	err := s.db.QueryRow(
		"SELECT version FROM schema_versions WHERE component = ?", schemaComponent,
	).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.Exec(
			"INSERT INTO schema_versions (component, version, applied_at) VALUES (?, ?, ?)",
			schemaComponent, SchemaVersion, s.now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version > SchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
	}

	for v := version + 1; v <= SchemaVersion; v++ {
		if stmt, ok := upgrades[v]; ok {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("upgrade schema to version %d: %w", v, err)
			}
		}
	}
	if version < SchemaVersion {
		_, err = s.db.Exec(
			"UPDATE schema_versions SET version = ?, applied_at = ? WHERE component = ?",
			SchemaVersion, s.now().UTC(), schemaComponent,
		)
		if err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	}
	return nil
}

// upgrades holds the statements that bring a database from the previous
// version to the keyed one
var upgrades = map[int]string{
	2: "ALTER TABLE entries ADD COLUMN tag_attempted_at DATETIME",
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// AddEntry creates a new entry for userID. A zero createdAt means now.
func (s *Store) AddEntry(ctx context.Context, userID, content string, createdAt time.Time) (*domain.Entry, error) {
	id := uuid.New().String()
	now := s.now().UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	createdAt = createdAt.UTC()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO entries (id, user_id, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		id, userID, content, createdAt, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	return &domain.Entry{
		ID:        id,
		UserID:    userID,
		Content:   content,
		CreatedAt: createdAt,
	}, nil
}

// GetEntry retrieves an entry by ID
func (s *Store) GetEntry(ctx context.Context, id string) (*domain.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE id = ?", id,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// FindEntry returns the user's newest entry whose ID starts with prefix, so
// short IDs printed by the CLI can be used
func (s *Store) FindEntry(ctx context.Context, userID, prefix string) (*domain.Entry, error) {
	if prefix == "" || strings.ContainsAny(prefix, "%_") {
		return nil, ErrEntryNotFound
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE user_id = ? AND id LIKE ? ORDER BY created_at DESC LIMIT 1",
		userID, prefix+"%",
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find entry: %w", err)
	}
	return entry, nil
}

// ListEntries returns a user's entries newest first with pagination
func (s *Store) ListEntries(ctx context.Context, userID string, limit, offset int) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?",
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return scanEntries(rows)
}

// FetchEntries returns the user's most recent window entries in the requested
// created_at order. A window <= 0 means no limit.
func (s *Store) FetchEntries(ctx context.Context, userID string, window int, order Order) ([]domain.Entry, error) {
	if window <= 0 {
		window = -1
	}

	if order != Ascending && order != Descending && order != "" {
		return nil, fmt.Errorf("invalid order %q", order)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, window,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch entries: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if order != Descending {
		slices.Reverse(entries)
	}
	return entries, nil
}

// FetchTaggedEntries returns every entry of the user that carries persisted
// themes or sentiment, oldest first
func (s *Store) FetchTaggedEntries(ctx context.Context, userID string) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE user_id = ? AND (themes IS NOT NULL OR sentiment IS NOT NULL) ORDER BY created_at ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch tagged entries: %w", err)
	}
	return scanEntries(rows)
}

// FetchUntaggedEntries returns up to limit entries of the user that have not
// been tagged yet. Entries never attempted come first, oldest first, followed
// by failed ones in order of their last attempt.
func (s *Store) FetchUntaggedEntries(ctx context.Context, userID string, limit int) ([]domain.Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE user_id = ? AND themes IS NULL AND sentiment IS NULL "+
			"ORDER BY tag_attempted_at IS NOT NULL, tag_attempted_at ASC, created_at ASC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch untagged entries: %w", err)
	}
	return scanEntries(rows)
}

// CountEntries returns the number of entries a user has written
func (s *Store) CountEntries(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entries WHERE user_id = ?", userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// ListUserIDs returns every user that owns at least one entry
func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT user_id FROM entries ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateEntry replaces the content of an entry
func (s *Store) UpdateEntry(ctx context.Context, id, content string) (*domain.Entry, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE entries SET content = ?, updated_at = ?, themes = NULL, sentiment = NULL, tagged_at = NULL, tag_attempted_at = NULL WHERE id = ?",
		content, s.now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return s.GetEntry(ctx, id)
}

// MarkTagAttempt records a failed classification attempt so the entry moves
// behind untried ones in FetchUntaggedEntries
func (s *Store) MarkTagAttempt(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE entries SET tag_attempted_at = ? WHERE id = ?",
		s.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark tag attempt: %w", err)
	}
	return requireRow(res)
}

// TagEntry stores the themes and sentiment assigned to an entry
func (s *Store) TagEntry(ctx context.Context, id string, themes []string, sentiment *domain.Sentiment) error {
	if themes == nil {
		themes = []string{}
	}
	encoded, err := json.Marshal(themes)
	if err != nil {
		return fmt.Errorf("encode themes: %w", err)
	}

	var sent sql.NullString
	if sentiment != nil {
		if !sentiment.Valid() {
			return fmt.Errorf("invalid sentiment %q", *sentiment)
		}
		sent = sql.NullString{String: string(*sentiment), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE entries SET themes = ?, sentiment = ?, tagged_at = ? WHERE id = ?",
		string(encoded), sent, s.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("tag entry: %w", err)
	}
	return requireRow(res)
}

// DeleteEntry removes an entry
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireRow(res)
}

// SearchEntries performs a simple text search over a user's entries
func (s *Store) SearchEntries(ctx context.Context, userID, query string) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE user_id = ? AND content LIKE ? ORDER BY created_at DESC",
		userID, "%"+query+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	return scanEntries(rows)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*domain.Entry, error) {
	var (
		e         domain.Entry
		themes    sql.NullString
		sentiment sql.NullString
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Content, &e.CreatedAt, &themes, &sentiment); err != nil {
		return nil, err
	}

	if themes.Valid {
		e.Themes = []string{}
		if err := json.Unmarshal([]byte(themes.String), &e.Themes); err != nil {
			return nil, fmt.Errorf("decode themes of %s: %w", e.ID, err)
		}
	}
	if sentiment.Valid {
		s := domain.Sentiment(sentiment.String)
		e.Sentiment = &s
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
