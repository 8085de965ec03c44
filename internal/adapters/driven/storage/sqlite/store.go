package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/fabula/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Store is a SQLite-based storage that provides access to the persona
// store interface through a wrapper type.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.fabula/data/fabula.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".fabula", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "fabula.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
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

// PersonaStore returns a PersonaStore interface backed by this store.
func (s *Store) PersonaStore() driven.PersonaStore {
	return &personaStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Persona Store ====================

// personaStore implements driven.PersonaStore.
type personaStore struct {
	store *Store
}

var _ driven.PersonaStore = (*personaStore)(nil)

// SavePersona stores or updates a persona. Usage fields of an existing
// record survive updates; RecordUsage is the only writer for them.
func (s *personaStore) SavePersona(ctx context.Context, persona *domain.Persona) error {
	styleJSON, err := json.Marshal(persona.Style)
	if err != nil {
		return fmt.Errorf("marshalling style: %w", err)
	}

	paramsJSON, err := json.Marshal(persona.Params)
	if err != nil {
		return fmt.Errorf("marshalling params: %w", err)
	}

	createdAt := persona.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO personas (id, display_name, document, doc_version, style, params, created_at, usage_count, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			document = excluded.document,
			doc_version = excluded.doc_version,
			style = excluded.style,
			params = excluded.params
	`, persona.ID, persona.DisplayName, persona.Document, persona.DocVersion,
		string(styleJSON), string(paramsJSON), createdAt)

	if err != nil {
		return fmt.Errorf("saving persona: %w", err)
	}
	return nil
}

// GetPersona retrieves a persona by ID, document included.
func (s *personaStore) GetPersona(ctx context.Context, id string) (*domain.Persona, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, display_name, document, doc_version, style, params, created_at, usage_count, last_used_at
		FROM personas WHERE id = ?
	`, id)

	var persona domain.Persona
	var styleJSON string
	var paramsJSON sql.NullString
	var createdAt, lastUsedAt sql.NullTime
	if err := row.Scan(&persona.ID, &persona.DisplayName, &persona.Document, &persona.DocVersion,
		&styleJSON, &paramsJSON, &createdAt, &persona.UsageCount, &lastUsedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPersonaNotFound
		}
		return nil, fmt.Errorf("scanning persona: %w", err)
	}

	if err := hydratePersona(&persona, styleJSON, paramsJSON, createdAt, lastUsedAt); err != nil {
		return nil, err
	}

	return &persona, nil
}

// ListPersonas returns all personas without document bodies, ordered by ID.
func (s *personaStore) ListPersonas(ctx context.Context) ([]domain.Persona, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, display_name, doc_version, style, params, created_at, usage_count, last_used_at
		FROM personas ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying personas: %w", err)
	}
	defer rows.Close()

	var personas []domain.Persona //nolint:prealloc // size unknown from query
	for rows.Next() {
		var persona domain.Persona
		var styleJSON string
		var paramsJSON sql.NullString
		var createdAt, lastUsedAt sql.NullTime
		if err := rows.Scan(&persona.ID, &persona.DisplayName, &persona.DocVersion,
			&styleJSON, &paramsJSON, &createdAt, &persona.UsageCount, &lastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning persona: %w", err)
		}

		if err := hydratePersona(&persona, styleJSON, paramsJSON, createdAt, lastUsedAt); err != nil {
			return nil, err
		}
		personas = append(personas, persona)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating personas: %w", err)
	}

	return personas, nil
}

// DeletePersona removes a persona; its chunks cascade.
func (s *personaStore) DeletePersona(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM personas WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting persona: %w", err)
	}
	return nil
}

// SaveChunks replaces the stored chunk set for a document version. The
// persona keeps a single set at a time: rows from superseded document
// versions are removed in the same transaction.
func (s *personaStore) SaveChunks(ctx context.Context, personaID, docVersion string, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE persona_id = ?", personaID); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, persona_id, doc_version, position, content, embedding, embedding_model)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		chunk.PersonaID = personaID
		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, chunk.ID(), personaID, docVersion,
			chunk.Offset, chunk.Text, embeddingBlob, chunk.EmbeddingModel); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunks retrieves the chunk set for a document version, embeddings
// included, in offset order.
func (s *personaStore) GetChunks(ctx context.Context, personaID, docVersion string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT persona_id, position, content, embedding, embedding_model
		FROM chunks WHERE persona_id = ? AND doc_version = ?
		ORDER BY position
	`, personaID, docVersion)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var embeddingBlob []byte
		if err := rows.Scan(&chunk.PersonaID, &chunk.Offset, &chunk.Text,
			&embeddingBlob, &chunk.EmbeddingModel); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// RecordUsage increments the persona's usage counter and stamps the
// last-used time. The read-modify-write runs in a single transaction.
func (s *personaStore) RecordUsage(ctx context.Context, personaID string, at time.Time) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var count int64
	var lastUsed sql.NullTime
	row := tx.QueryRowContext(ctx, "SELECT usage_count, last_used_at FROM personas WHERE id = ?", personaID)
	if err := row.Scan(&count, &lastUsed); err != nil {
		if err == sql.ErrNoRows {
			return domain.ErrPersonaNotFound
		}
		return fmt.Errorf("reading usage: %w", err)
	}

	stamp := at.UTC()
	if lastUsed.Valid && lastUsed.Time.After(stamp) {
		stamp = lastUsed.Time
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE personas SET usage_count = ?, last_used_at = ? WHERE id = ?",
		count+1, stamp, personaID); err != nil {
		return fmt.Errorf("recording usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close is a no-op: the wrapped Store owns the database connection.
func (s *personaStore) Close() error {
	return nil
}

// ==================== Helper Functions ====================

// hydratePersona fills the JSON and nullable columns of a scanned persona.
func hydratePersona(persona *domain.Persona, styleJSON string, paramsJSON sql.NullString,
	createdAt, lastUsedAt sql.NullTime) error {
	if styleJSON != "" && styleJSON != jsonNull {
		if err := json.Unmarshal([]byte(styleJSON), &persona.Style); err != nil {
			return fmt.Errorf("unmarshalling style: %w", err)
		}
	}

	if paramsJSON.Valid && paramsJSON.String != "" && paramsJSON.String != jsonNull {
		var params domain.GenerationParams
		if err := json.Unmarshal([]byte(paramsJSON.String), &params); err != nil {
			return fmt.Errorf("unmarshalling params: %w", err)
		}
		persona.Params = &params
	}

	if createdAt.Valid {
		persona.CreatedAt = createdAt.Time
	}
	if lastUsedAt.Valid {
		persona.LastUsedAt = lastUsedAt.Time
	}
	return nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
