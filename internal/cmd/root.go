// Package cmd implements the importmgr command-line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/catherinevee/importmgr/internal/config"
	"github.com/catherinevee/importmgr/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config

	rootCmd = &cobra.Command{
		Use:   "importmgr",
		Short: "Import existing cloud infrastructure into managed IaC",
		Long: `importmgr discovers the resources already running in a cloud account,
generates Terraform configuration for them, surfaces security gaps and
compliance posture, and estimates the monthly spend of the imported estate.

A single run produces a consolidated import job report: inventory,
infrastructure-as-code document, security score, and prioritized
remediation advice.`,
		Version: "1.0.0",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = loaded
			logger.Initialize(logger.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: cfg.Logging.Output,
			})
			return nil
		},
	}
)

// Execute runs the root command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./importmgr.yaml, $HOME/.importmgr)")
	rootCmd.PersistentFlags().String("region", "", "AWS region override")
}
