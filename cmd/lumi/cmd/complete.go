package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCompleteCmd(g *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "complete <prefix>",
		Short: "Suggest indexed words starting with a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := g.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()
			for _, w := range eng.Autocomplete(args[0], limit) {
				fmt.Fprintln(cmd.OutOrStdout(), w)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum suggestions (default from config)")
	return cmd
}
