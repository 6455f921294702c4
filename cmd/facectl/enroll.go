package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
)

func newEnrollCmd(c *cli) *cobra.Command {
	var name, accountID string

	cmd := &cobra.Command{
		Use:   "enroll --name NAME --account ID IMAGE...",
		Short: "Enroll a person from 5 to 20 images",
		Args:  cobra.RangeArgs(domain.MinEnrollImages, domain.MaxEnrollImages),
		RunE: func(cmd *cobra.Command, args []string) error {
			images := make([][]byte, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				images = append(images, data)
			}

			result, err := c.app.Pipeline.Enroll(cmd.Context(), service.EnrollRequest{
				Name:      name,
				AccountID: accountID,
				Images:    images,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "IMAGE\tACCEPTED\tREASON")
			for _, s := range result.Samples {
				fmt.Fprintf(w, "%s\t%t\t%s\n", args[s.Index], s.Accepted, s.Reason)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "enrolled %s (%s) with %d of %d images\n",
				result.Identity.Name, result.Identity.AccountID, result.Accepted, len(args))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name of the person")
	cmd.Flags().StringVar(&accountID, "account", "", "Unique account id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}
