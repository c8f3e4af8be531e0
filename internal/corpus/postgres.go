package corpus

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lumisearch/lumi/pkg/postgres"
)

// PostgresSource yields the rows of Query, which must select an integer
// id and a text body. The rows are read in one read-only transaction so
// the build sees a consistent snapshot.
type PostgresSource struct {
	Client *postgres.Client
	Query  string
}

func (s PostgresSource) Each(ctx context.Context, fn func(docID int, text string) error) error {
	return s.Client.InTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead}, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, s.Query)
		if err != nil {
			return fmt.Errorf("querying corpus: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id   int64
				body sql.NullString
			)
			if err := rows.Scan(&id, &body); err != nil {
				return fmt.Errorf("scanning corpus row: %w", err)
			}
			if err := fn(int(id), body.String); err != nil {
				return fmt.Errorf("document %d: %w", id, err)
			}
		}
		return rows.Err()
	})
}
