package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/lumisearch/lumi/internal/indexer"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
	"github.com/lumisearch/lumi/pkg/kafka"
)

// DocumentAdder applies one document to the index.
type DocumentAdder interface {
	AddDocument(ctx context.Context, docID int, text string) (*indexer.AddResult, error)
}

// EventPublisher sends an event to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// HandleMessage returns a kafka.MessageHandler that indexes DocumentEvents
// through adder. Undecodable or invalid events and redelivered documents
// are logged and acknowledged; other failures are returned for retry.
// When notify is non-nil an IndexedEvent is published after each add.
func HandleMessage(adder DocumentAdder, notify EventPublisher) kafka.MessageHandler {
	logger := slog.Default().With("component", "ingest-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[DocumentEvent](value)
		if err != nil {
			logger.Error("dropping undecodable event", "key", string(key), "error", err)
			return nil
		}
		if err := Validate(&ev); err != nil {
			logger.Warn("dropping invalid event", "doc_id", ev.DocID, "error", err)
			return nil
		}

		res, err := adder.AddDocument(ctx, ev.DocID, ev.Text)
		if errors.Is(err, apperrors.ErrDocumentExists) {
			logger.Warn("document already indexed, skipping", "doc_id", ev.DocID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("indexing document %d: %w", ev.DocID, err)
		}
		logger.Info("document indexed",
			"doc_id", ev.DocID,
			"new_words", len(res.NewWords),
			"shards_written", len(res.ShardsWritten),
			"lag_ms", lag(ev.PublishedAt),
		)

		if notify != nil {
			done := kafka.Event{
				Key: strconv.Itoa(ev.DocID),
				Value: IndexedEvent{
					DocID:     ev.DocID,
					NewWords:  len(res.NewWords),
					Shards:    res.ShardsWritten,
					IndexedAt: time.Now().UTC(),
				},
			}
			if err := notify.Publish(ctx, done); err != nil {
				// the document is committed; only the announcement is lost
				logger.Error("failed to publish index-complete event", "doc_id", ev.DocID, "error", err)
			}
		}
		return nil
	}
}

func lag(published time.Time) int64 {
	if published.IsZero() {
		return 0
	}
	return time.Since(published).Milliseconds()
}
