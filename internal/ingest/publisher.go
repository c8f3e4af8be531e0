package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/lumisearch/lumi/pkg/kafka"
)

// Publisher validates documents and sends them to the document-add topic.
type Publisher struct {
	producer EventPublisher
	logger   *slog.Logger
}

func NewPublisher(producer EventPublisher) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   slog.Default().With("component", "ingest-publisher"),
	}
}

// Publish queues docID for indexing. The event is keyed by doc id so that
// redeliveries of one document stay on one partition.
func (p *Publisher) Publish(ctx context.Context, docID int, text string) error {
	ev := DocumentEvent{DocID: docID, Text: text, PublishedAt: time.Now().UTC()}
	if err := Validate(&ev); err != nil {
		return err
	}
	if err := p.producer.Publish(ctx, kafka.Event{Key: strconv.Itoa(docID), Value: ev}); err != nil {
		return fmt.Errorf("publishing document %d: %w", docID, err)
	}
	p.logger.Info("document queued", "doc_id", docID, "bytes", len(text))
	return nil
}
