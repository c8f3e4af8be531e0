// Package ingest moves documents into the index through Kafka. Producers
// publish DocumentEvents to the document-add topic; the searcher consumes
// them, applies each with AddDocument, and announces the outcome on the
// index-complete topic.
package ingest

import "time"

// DocumentEvent asks for one document to be indexed.
type DocumentEvent struct {
	DocID       int       `json:"doc_id"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"published_at"`
}

// IndexedEvent reports that a DocumentEvent was applied.
type IndexedEvent struct {
	DocID     int       `json:"doc_id"`
	NewWords  int       `json:"new_words"`
	Shards    []int     `json:"shards"`
	IndexedAt time.Time `json:"indexed_at"`
}
