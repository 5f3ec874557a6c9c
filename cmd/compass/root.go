package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/collegecompass/compass/config"
)

// version is stamped at build time via -ldflags.
var version = "dev"

type rootFlags struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "compass",
		Short:         "College counseling engine with multi-agent chat and versioned plans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Missing .env is fine; keys can come from the real environment.
			if err := godotenv.Load(flags.envFile); err == nil {
				cmd.Printf("loaded environment from %s\n", flags.envFile)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to YAML config (defaults apply when omitted)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "path to .env file")

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the compass version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("compass %s\n", version)
		},
	}
}

func loadConfig(flags *rootFlags) (*config.Config, error) {
	if flags.configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
