package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/lumisearch/lumi/pkg/errors"
)

func newAddCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <doc-id> [text...]",
		Short: "Index one document and commit it",
		Long: `Add indexes a document under the given id. Without text arguments
the document is read from stdin.

Examples:
  lumi add 42 the quick brown fox
  lumi add 43 < article.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: doc id %q is not an integer", apperrors.ErrInvalidInput, args[0])
			}
			text := strings.Join(args[1:], " ")
			if len(args) == 1 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading document: %w", err)
				}
				text = string(data)
			}

			eng, err := g.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()
			res, err := eng.AddDocument(cmd.Context(), docID, text)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed doc %d: %d terms, %d new words, %d shards written\n",
				res.DocID, res.Terms, len(res.NewWords), len(res.ShardsWritten))
			return nil
		},
	}
	return cmd
}
