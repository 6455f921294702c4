package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
)

type importSummary struct {
	imported   int
	duplicates int
	failed     []error
}

func newImportLegacyCmd(c *cli) *cobra.Command {
	var (
		allowSparse bool
		dryRun      bool
		noProgress  bool
	)

	cmd := &cobra.Command{
		Use:   "import-legacy DIR",
		Short: "Import per-user JSON records exported by the previous system",
		Long: `Reads every *.json file in DIR, normalizes whichever of embeddings,
mean_embedding or embedding it carries, and adds the result to the gallery.
Accounts that are already enrolled are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := repository.ReadLegacyDir(args[0], repository.LegacyOptions{
				AllowSparse:  allowSparse,
				FallbackTime: time.Now(),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			progress := io.Discard
			if !noProgress {
				progress = cmd.ErrOrStderr()
			}
			bar := progressbar.NewOptions(len(files),
				progressbar.OptionSetWriter(progress),
				progressbar.OptionSetDescription("Importing records"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("records"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionFullWidth(),
			)

			var summary importSummary
			for _, f := range files {
				switch {
				case f.Err != nil:
					summary.failed = append(summary.failed, f.Err)
				case dryRun:
					summary.imported++
				default:
					err := c.app.Gallery.Add(cmd.Context(), f.Identity)
					switch {
					case errors.Is(err, domain.ErrDuplicateAccount):
						summary.duplicates++
					case err != nil:
						summary.failed = append(summary.failed, fmt.Errorf("%s: %w", f.Identity.AccountID, err))
					default:
						summary.imported++
					}
				}
				_ = bar.Add(1)
			}
			_ = bar.Finish()
			fmt.Fprintln(progress)

			verb := "imported"
			if dryRun {
				verb = "would import"
			}
			fmt.Fprintf(out, "%s %d, skipped %d already enrolled, %d failed\n",
				verb, summary.imported, summary.duplicates, len(summary.failed))
			for _, err := range summary.failed {
				fmt.Fprintf(out, "  %v\n", err)
			}

			if summary.imported == 0 && summary.duplicates == 0 && len(summary.failed) > 0 {
				return errors.New("no records imported")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowSparse, "allow-sparse", false, "Accept records with fewer than 3 embeddings")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse records without writing to the gallery")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Hide the progress bar")

	return cmd
}
