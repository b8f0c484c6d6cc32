package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"greencheck/internal/adapter/analyzer"
	"greencheck/internal/domain"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

func init() {
	sqlx.BindDriver(DialectSQLite, sqlx.QUESTION)
}

// SQLStore is a corpus store backed by SQLite (FTS5) or PostgreSQL
// (tsvector) through sqlx.
type SQLStore struct {
	db        *sqlx.DB
	dialect   string
	tokenizer *analyzer.Tokenizer
	logger    *zap.Logger
}

type documentRow struct {
	ID         string    `db:"id"`
	SourceTag  string    `db:"source_tag"`
	Name       string    `db:"name"`
	Content    string    `db:"content"`
	Metadata   string    `db:"metadata"`
	PublicRead bool      `db:"public_read"`
	CreatedAt  time.Time `db:"created_at"`
}

type chunkRow struct {
	ID          string `db:"id"`
	DocumentID  string `db:"document_id"`
	SourceTag   string `db:"source_tag"`
	Index       int    `db:"chunk_index"`
	TotalChunks int    `db:"total_chunks"`
	Content     string `db:"content"`
}

func (r chunkRow) toChunk() domain.Chunk {
	return domain.Chunk{
		ID:          r.ID,
		DocumentID:  r.DocumentID,
		SourceTag:   r.SourceTag,
		Index:       r.Index,
		TotalChunks: r.TotalChunks,
		Content:     r.Content,
	}
}

type detectionRow struct {
	ID        string    `db:"id"`
	Text      string    `db:"text_content"`
	Label     string    `db:"label"`
	Method    string    `db:"analysis_method"`
	Result    string    `db:"detection_result"`
	CreatedAt time.Time `db:"created_at"`
}

const chunkColumns = `c.id, c.document_id, c.source_tag, c.chunk_index, c.total_chunks, c.content`

// OpenSQLStore connects to the database and applies pending migrations.
func OpenSQLStore(ctx context.Context, dialect, dsn string, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch dialect {
	case DialectSQLite:
		db, err = sqlx.Open("sqlite", dsn)
		if err == nil {
			// One writer at a time; concurrent batch inserts queue on the pool.
			db.SetMaxOpenConns(1)
		}
	case DialectPostgres:
		db, err = sqlx.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("unsupported sql dialect: %s", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}

	s := &SQLStore{
		db:        db,
		dialect:   dialect,
		tokenizer: analyzer.NewTokenizer(),
		logger:    logger,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("SQL corpus store ready", zap.String("dialect", dialect))
	return s, nil
}

// migrate runs the embedded migrations. The migrate instance is not closed
// because closing its database driver would close the shared pool.
func (s *SQLStore) migrate() error {
	src, err := iofs.New(migrationFS, "migrations/"+s.dialect)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	var driver database.Driver
	switch s.dialect {
	case DialectSQLite:
		driver, err = sqlite.WithInstance(s.db.DB, &sqlite.Config{})
	case DialectPostgres:
		driver, err = postgres.WithInstance(s.db.DB, &postgres.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.dialect, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

func (s *SQLStore) Dialect() string {
	return s.dialect
}

func (s *SQLStore) PutDocument(ctx context.Context, doc domain.Document) (domain.Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to encode metadata: %w", err)
	}

	query := s.db.Rebind(`INSERT INTO documents (id, source_tag, name, content, metadata, public_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query, doc.ID, doc.SourceTag, doc.Name, doc.Content, string(meta), doc.PublicRead, doc.CreatedAt)
	if err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

func (s *SQLStore) GetDocumentBySource(ctx context.Context, sourceTag string) (domain.Document, error) {
	var row documentRow
	query := s.db.Rebind(`SELECT id, source_tag, name, content, metadata, public_read, created_at
		FROM documents WHERE source_tag = ?`)
	if err := s.db.GetContext(ctx, &row, query, sourceTag); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Document{}, fmt.Errorf("document for source %s: %w", sourceTag, ErrNotFound)
		}
		return domain.Document{}, err
	}

	doc := domain.Document{
		ID:         row.ID,
		SourceTag:  row.SourceTag,
		Name:       row.Name,
		Content:    row.Content,
		PublicRead: row.PublicRead,
		CreatedAt:  row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.Metadata), &doc.Metadata); err != nil {
		return domain.Document{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return doc, nil
}

func (s *SQLStore) DeleteDocumentBySource(ctx context.Context, sourceTag string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM documents WHERE source_tag = ?`), sourceTag)
	return err
}

func (s *SQLStore) DeleteChunksBySource(ctx context.Context, sourceTag string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM document_chunks WHERE source_tag = ?`), sourceTag)
	return err
}

func (s *SQLStore) InsertChunk(ctx context.Context, chunk domain.Chunk) error {
	query := s.db.Rebind(`INSERT INTO document_chunks (id, document_id, source_tag, chunk_index, total_chunks, content)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, chunk.ID, chunk.DocumentID, chunk.SourceTag, chunk.Index, chunk.TotalChunks, chunk.Content)
	return err
}

// SearchFullText matches any query term and orders by the engine's ranking:
// bm25() for SQLite, ts_rank for PostgreSQL.
func (s *SQLStore) SearchFullText(ctx context.Context, sourceTag, query string, limit int) ([]domain.Chunk, error) {
	terms := uniqueTerms(s.tokenizer.Tokenize(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var (
		q    string
		args []interface{}
	)
	switch s.dialect {
	case DialectSQLite:
		quoted := make([]string, len(terms))
		for i, t := range terms {
			quoted[i] = `"` + t + `"`
		}
		q = `SELECT ` + chunkColumns + `
			FROM chunks_fts f JOIN document_chunks c ON c.rowid = f.rowid
			WHERE chunks_fts MATCH ? AND c.source_tag = ?
			ORDER BY bm25(chunks_fts), c.chunk_index
			LIMIT ?`
		args = []interface{}{strings.Join(quoted, " OR "), sourceTag, limit}
	case DialectPostgres:
		tsq := strings.Join(terms, " | ")
		q = `SELECT ` + chunkColumns + `
			FROM document_chunks c
			WHERE c.source_tag = ? AND to_tsvector('english', c.content) @@ to_tsquery('english', ?)
			ORDER BY ts_rank(to_tsvector('english', c.content), to_tsquery('english', ?)) DESC, c.chunk_index
			LIMIT ?`
		args = []interface{}{sourceTag, tsq, tsq, limit}
	}

	return s.selectChunks(ctx, q, args...)
}

func (s *SQLStore) SearchSubstring(ctx context.Context, sourceTag, needle string, limit int) ([]domain.Chunk, error) {
	if needle == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(strings.ToLower(needle)) + "%"

	var cond string
	switch s.dialect {
	case DialectPostgres:
		cond = `c.content ILIKE ? ESCAPE '\'`
	default:
		cond = `LOWER(c.content) LIKE ? ESCAPE '\'`
	}

	q := `SELECT ` + chunkColumns + ` FROM document_chunks c
		WHERE c.source_tag = ? AND ` + cond + `
		ORDER BY c.chunk_index
		LIMIT ?`
	return s.selectChunks(ctx, q, sourceTag, pattern, limit)
}

func (s *SQLStore) SampleChunks(ctx context.Context, sourceTag string, limit int) ([]domain.Chunk, error) {
	q := `SELECT ` + chunkColumns + ` FROM document_chunks c
		WHERE c.source_tag = ?
		ORDER BY c.chunk_index
		LIMIT ?`
	return s.selectChunks(ctx, q, sourceTag, limit)
}

func (s *SQLStore) selectChunks(ctx context.Context, query string, args ...interface{}) ([]domain.Chunk, error) {
	var rows []chunkRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, len(rows))
	for i, r := range rows {
		chunks[i] = r.toChunk()
	}
	return chunks, nil
}

func (s *SQLStore) CountChunks(ctx context.Context, sourceTag string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.db.Rebind(`SELECT COUNT(*) FROM document_chunks WHERE source_tag = ?`), sourceTag)
	return count, err
}

func (s *SQLStore) AppendDetection(ctx context.Context, d domain.Detection) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	result, err := json.Marshal(d.Result)
	if err != nil {
		return fmt.Errorf("failed to encode detection result: %w", err)
	}

	query := s.db.Rebind(`INSERT INTO detections (id, text_content, label, analysis_method, detection_result, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query, d.ID, d.Text, string(d.Label), d.Method, string(result), d.CreatedAt)
	return err
}

func (s *SQLStore) ListDetections(ctx context.Context, limit int) ([]domain.Detection, error) {
	q := `SELECT id, text_content, label, analysis_method, detection_result, created_at
		FROM detections ORDER BY seq DESC`
	var args []interface{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []detectionRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, err
	}

	detections := make([]domain.Detection, 0, len(rows))
	for _, r := range rows {
		d := domain.Detection{
			ID:        r.ID,
			Text:      r.Text,
			Label:     domain.RiskLevel(r.Label),
			Method:    r.Method,
			CreatedAt: r.CreatedAt,
		}
		if err := json.Unmarshal([]byte(r.Result), &d.Result); err != nil {
			s.logger.Warn("Skipping undecodable detection", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		detections = append(detections, d)
	}
	return detections, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
