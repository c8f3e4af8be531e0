package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumisearch/lumi/internal/ingest"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
	"github.com/lumisearch/lumi/pkg/kafka"
)

func newPublishCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <doc-id> [text...]",
		Short: "Queue a document on Kafka for the search service to index",
		Args:  cobra.MinimumNArgs(1),
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

			producer := kafka.NewProducer(g.cfg.Kafka, g.cfg.Kafka.Topics.DocumentAdd)
			defer producer.Close()
			if err := ingest.NewPublisher(producer).Publish(cmd.Context(), docID, text); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued doc %d on %s\n", docID, g.cfg.Kafka.Topics.DocumentAdd)
			return nil
		},
	}
	return cmd
}
