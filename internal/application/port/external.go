package port

import (
	"context"

	"github.com/garyjia/sov-billing/internal/domain/event"
	"github.com/garyjia/sov-billing/internal/domain/sovimport"
)

// TableReader turns an uploaded file into headers and rows. The format is
// chosen from the file name
type TableReader interface {
	Read(ctx context.Context, fileName string, data []byte) (*sovimport.Table, error)
}

// TableWriter renders a single-sheet workbook
type TableWriter interface {
	Write(ctx context.Context, sheet string, headers []string, rows [][]any) ([]byte, error)
}

// EventPublisher delivers domain events after a write commits
type EventPublisher interface {
	Publish(ctx context.Context, evt *event.Event)
}
