package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newIdentitiesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "identities",
		Short: "List enrolled identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			identities := c.app.Gallery.List()
			out := cmd.OutOrStdout()

			if len(identities) == 0 {
				fmt.Fprintln(out, "No identities enrolled.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ACCOUNT\tNAME\tSAMPLES\tENROLLED")
			for _, id := range identities {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", id.AccountID, id.Name, id.SampleCount, id.EnrolledAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}
