// Package cmd holds the kfmcounsel command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/config"
	"github.com/abimbolaoige/KFM-Counsel-Chat/logging"
)

type rootOptions struct {
	configPath string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "kfmcounsel",
		Short: "KFM Counsel backend",
		Long: `kfmcounsel serves the KFM Counsel API: relationship assessments,
counselling chat with safety screening, journal, prayer hub and
counsellor intake.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newScoreCmd())
	root.AddCommand(newEscalationsCmd(opts))
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger from it.
func (o *rootOptions) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
