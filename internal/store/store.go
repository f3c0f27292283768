package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"cardsmith/internal/chunker"
	"cardsmith/internal/deck"
)

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrSummaryNotFound  = errors.New("summary not found")
)

type Document struct {
	ID         uuid.UUID
	Title      string
	SourceType string
	Status     DocumentStatus
	Error      string
	CreatedAt  time.Time
}

type Summary struct {
	DocumentID  uuid.UUID
	Summary     string
	TargetWords int
}

// Store defines the persistence contract; an external DB implementation can
// replace this.
type Store interface {
	CreateDocument(ctx context.Context, title, sourceType string) (Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (Document, error)
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus, errMsg string) error
	SaveChunks(ctx context.Context, docID uuid.UUID, chunks []chunker.Chunk) ([]chunker.Chunk, error)
	ListChunks(ctx context.Context, docID uuid.UUID) ([]chunker.Chunk, error)
	SaveCards(ctx context.Context, docID uuid.UUID, cards []deck.Card) error
	ListCards(ctx context.Context, docID uuid.UUID) ([]deck.Card, error)
	SaveSummary(ctx context.Context, docID uuid.UUID, summary Summary) error
	GetSummary(ctx context.Context, docID uuid.UUID) (Summary, error)
}
