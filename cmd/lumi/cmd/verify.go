package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check document frequencies against the barrels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := g.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()
			mismatches, err := eng.Verify(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(mismatches) == 0 {
				fmt.Fprintln(out, "index consistent")
				return nil
			}
			for _, m := range mismatches {
				fmt.Fprintf(out, "term %d: df=%d postings=%d\n", m.TermID, m.Stored, m.Postings)
			}
			return fmt.Errorf("%d terms disagree with their barrels; rebuild with 'lumi build'", len(mismatches))
		},
	}
}
