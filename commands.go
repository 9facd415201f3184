package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxibertaina03/balanza-industrial/internal/config"
	"github.com/maxibertaina03/balanza-industrial/internal/version"
)

func rootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "balanza",
		Short:         "Industrial weighing dashboard server",
		Long:          "Serves live scale readings, the weigh-record ledger and expeditions over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the weighing server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	serve.Flags().String("listen", "", "HTTP listen address (overrides config)")
	serve.Flags().Bool("simulate", false, "use a simulated scale instead of the serial port")
	serve.Flags().String("port", "", "serial port device (overrides config)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("balanza %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		},
	}

	root.AddCommand(serve, versionCmd)

	// Running the bare binary serves; operators rarely type the subcommand.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("listen") {
		cfg.Listen, _ = cmd.Flags().GetString("listen")
	}
	if cmd.Flags().Changed("simulate") {
		cfg.Scale.Simulate, _ = cmd.Flags().GetBool("simulate")
	}
	if cmd.Flags().Changed("port") {
		cfg.Scale.Port, _ = cmd.Flags().GetString("port")
	}
}
