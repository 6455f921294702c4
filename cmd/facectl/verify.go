package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newVerifyCmd(c *cli) *cobra.Command {
	var multi bool

	cmd := &cobra.Command{
		Use:   "verify IMAGE",
		Short: "Identify the person in an image and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			var result any
			if multi {
				result, err = c.app.Pipeline.VerifyAll(cmd.Context(), data)
			} else {
				result, err = c.app.Pipeline.Verify(cmd.Context(), data)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().BoolVar(&multi, "multi", false, "Evaluate every face in the image")

	return cmd
}
