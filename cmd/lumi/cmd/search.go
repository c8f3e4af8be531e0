package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumisearch/lumi/internal/searcher/ranker"
)

type searchOptions struct {
	limit  int
	all    bool
	format string
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Find documents containing every query word",
		Long: `Search returns documents that contain all query words, best first.

Examples:
  lumi search quantum foam
  lumi search "cat dog" --limit 3
  lumi search solar --all --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := g.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			query := strings.Join(args, " ")
			limit := opts.limit
			if opts.all {
				limit = 0
			} else if limit <= 0 {
				limit = ranker.DefaultTopK
			}
			start := time.Now()
			res, _, err := eng.Query(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			out := cmd.OutOrStdout()
			if opts.format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if len(res.Results) == 0 {
				fmt.Fprintf(out, "No documents match %q.\n", query)
				return nil
			}
			for i, doc := range res.Results {
				fmt.Fprintf(out, "%3d. doc %-8d score %.4f  (tfidf %.4f, semantic %.4f, ttf %d)\n",
					i+1, doc.DocID, doc.Score, doc.Lexical, doc.Semantic, doc.TotalTermFreq)
			}
			fmt.Fprintf(out, "\n%d of %d matches, %d shards loaded, %s\n",
				len(res.Results), res.TotalHits, res.ShardsLoaded, elapsed.Round(time.Microsecond))
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", ranker.DefaultTopK, "Maximum number of results")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Print every match")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	return cmd
}
