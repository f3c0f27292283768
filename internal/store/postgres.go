package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"cardsmith/internal/chunker"
	"cardsmith/internal/deck"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Use an advisory lock to prevent concurrent migrations from multiple
	// services. In production, use a dedicated migration tool (e.g.
	// golang-migrate/migrate) run as a separate deployment step.
	const lockID = 745210318

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		// Another service is running migrations; wait briefly and skip.
		time.Sleep(2 * time.Second)
		return nil
	}
	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			title TEXT,
			source_type TEXT,
			status TEXT,
			error TEXT DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id UUID PRIMARY KEY,
			document_id UUID REFERENCES documents(id) ON DELETE CASCADE,
			ord INT,
			text TEXT,
			word_count INT,
			token_count INT,
			start_char INT,
			end_char INT
		);`,
		`CREATE TABLE IF NOT EXISTS cards (
			id UUID PRIMARY KEY,
			document_id UUID REFERENCES documents(id) ON DELETE CASCADE,
			chunk_id UUID,
			front TEXT,
			back TEXT,
			tags TEXT[],
			difficulty TEXT,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS summaries (
			document_id UUID PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
			summary TEXT,
			target_words INT
		);`,
		`CREATE INDEX IF NOT EXISTS chunks_document_idx ON chunks(document_id, ord);`,
		`CREATE INDEX IF NOT EXISTS cards_document_idx ON cards(document_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, title, sourceType string) (Document, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents(id, title, source_type, status) VALUES($1,$2,$3,$4)`,
		id, title, sourceType, StatusProcessing)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Title: title, SourceType: sourceType, Status: StatusProcessing, CreatedAt: time.Now()}, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id uuid.UUID) (Document, error) {
	var d Document
	row := s.db.QueryRowContext(ctx, `SELECT id, title, source_type, status, error, created_at FROM documents WHERE id=$1`, id)
	if err := row.Scan(&d.ID, &d.Title, &d.SourceType, &d.Status, &d.Error, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, err
	}
	return d, nil
}

func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET status=$1, error=$2 WHERE id=$3`, status, errMsg, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (s *PostgresStore) SaveChunks(ctx context.Context, docID uuid.UUID, chunks []chunker.Chunk) ([]chunker.Chunk, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	out := make([]chunker.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.SourceID = docID
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks(id, document_id, ord, text, word_count, token_count, start_char, end_char) VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
			c.ID, docID, c.Index, c.Text, c.WordCount, c.TokenCount, c.StartChar, c.EndChar)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListChunks(ctx context.Context, docID uuid.UUID) ([]chunker.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ord, text, word_count, token_count, start_char, end_char FROM chunks WHERE document_id=$1 ORDER BY ord`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []chunker.Chunk
	for rows.Next() {
		var c chunker.Chunk
		if err := rows.Scan(&c.ID, &c.Index, &c.Text, &c.WordCount, &c.TokenCount, &c.StartChar, &c.EndChar); err != nil {
			return nil, err
		}
		c.SourceID = docID
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveCards(ctx context.Context, docID uuid.UUID, cards []deck.Card) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, c := range cards {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cards(id, document_id, chunk_id, front, back, tags, difficulty) VALUES($1,$2,$3,$4,$5,$6,$7)`,
			c.ID, docID, c.ChunkID, c.Front, c.Back, pq.Array(c.Tags), c.Difficulty)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListCards(ctx context.Context, docID uuid.UUID) ([]deck.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chunk_id, front, back, tags, difficulty FROM cards WHERE document_id=$1 ORDER BY created_at, id`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []deck.Card
	for rows.Next() {
		var c deck.Card
		var tags []string
		if err := rows.Scan(&c.ID, &c.ChunkID, &c.Front, &c.Back, pq.Array(&tags), &c.Difficulty); err != nil {
			return nil, err
		}
		c.Tags = tags
		c.SourceID = docID
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveSummary(ctx context.Context, docID uuid.UUID, summary Summary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries(document_id, summary, target_words)
		VALUES($1,$2,$3)
		ON CONFLICT (document_id) DO UPDATE SET summary=excluded.summary, target_words=excluded.target_words`,
		docID, summary.Summary, summary.TargetWords)
	return err
}

func (s *PostgresStore) GetSummary(ctx context.Context, docID uuid.UUID) (Summary, error) {
	var sum Summary
	row := s.db.QueryRowContext(ctx, `SELECT summary, target_words FROM summaries WHERE document_id=$1`, docID)
	if err := row.Scan(&sum.Summary, &sum.TargetWords); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, ErrSummaryNotFound
		}
		return Summary{}, fmt.Errorf("failed to get summary for doc %s: %w", docID, err)
	}
	sum.DocumentID = docID
	return sum, nil
}
