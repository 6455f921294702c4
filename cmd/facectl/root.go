package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facegate/internal/app"
	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
)

// Version is the application version.
const Version = "0.1.0"

// cli carries state shared by the subcommands of one invocation.
type cli struct {
	logLevel string
	notify   bool

	app *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "facectl",
		Short:         "Operate a facegate gallery from the command line",
		Long:          "facectl enrolls people, runs verifications and imports legacy records against the gallery configured through the facegate environment variables.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger := config.NewLoggerTo(cmd.ErrOrStderr(), cfg.Environment, c.logLevel)
			c.app, err = app.New(cmd.Context(), cfg, logger, app.Options{Notifications: c.notify})
			if err != nil {
				return fmt.Errorf("open gallery: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				c.app.Close()
			}
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "error", "Log level written to stderr (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&c.notify, "notify", false, "Publish results to the configured MQTT broker and webhook")

	root.AddCommand(
		newEnrollCmd(c),
		newVerifyCmd(c),
		newIdentitiesCmd(c),
		newImportLegacyCmd(c),
	)

	return root
}
