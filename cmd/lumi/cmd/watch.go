package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/lumisearch/lumi/internal/corpus"
)

func newWatchCmd(g *globalOptions) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Index <n>.txt files as they appear in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := g.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()
			return corpus.NewWatcher(args[0], eng, debounce).Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "Quiet period before a changed file is read")
	return cmd
}
