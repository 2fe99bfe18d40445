package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/airbusgeo/ee-ingester/config"
	"github.com/airbusgeo/ee-ingester/service/log"
	"github.com/airbusgeo/ee-ingester/workflow"
	"github.com/spf13/cobra"
)

var (
	// Global flags, overriding the configuration read from the environment
	envFile      string
	project      string
	bucket       string
	home         string
	strict       bool
	pollInterval string
	logLevel     string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "eeutil",
	Short: "Stage files and ingest them into Earth Engine",
	Long: `eeutil manages the assets of an Earth Engine home directory and ingests
local or remote files through a staging bucket (gs://, s3:// or file://).

The configuration is read from the environment (and from the .env file),
the global flags take precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		if cfg, err = config.Load(files...); err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("project") {
			cfg.Project = project
			if os.Getenv(config.EnvPsProject) == "" {
				cfg.PsProject = project
			}
		}
		if flags.Changed("bucket") {
			cfg.StagingURI = bucket
		}
		if flags.Changed("home") {
			cfg.Home = home
		}
		if flags.Changed("strict") {
			cfg.Strict = strict
		}
		if flags.Changed("poll-interval") {
			if cfg.PollInterval, err = config.ParseDuration(pollInterval); err != nil {
				return fmt.Errorf("--poll-interval: %w", err)
			}
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		return log.ParseLevel(cfg.LogLevel)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", "", "file defining environment variables (default: .env)")
	flags.StringVar(&project, "project", "", "Earth Engine project (env: "+config.EnvProject+")")
	flags.StringVar(&bucket, "bucket", "", "staging bucket: gs://bucket, s3://bucket, file:///dir (env: "+config.EnvStagingBucket+")")
	flags.StringVar(&home, "home", "", "home directory of the relative asset paths (env: "+config.EnvHome+")")
	flags.BoolVar(&strict, "strict", false, "failed and timed out tasks are errors (env: "+config.EnvStrict+")")
	flags.StringVar(&pollInterval, "poll-interval", "", "interval between two polls of a task (env: "+config.EnvPollInterval+")")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (env: "+config.EnvLogLevel+")")

	rootCmd.AddCommand(homeCmd, quotaCmd, infoCmd, existsCmd, lsCmd, mkdirCmd, aclCmd, propsCmd, cpCmd, rmCmd)
	rootCmd.AddCommand(ingestCmd, uploadCmd, batchCmd, waitCmd, statusCmd, stageCmd, unstageCmd)
}

// session opens a workflow with the global configuration and runs fn
func session(cmd *cobra.Command, withBucket bool, fn func(ctx context.Context, wf *workflow.Workflow) error) error {
	ctx := cmd.Context()
	wf, closeFn, err := workflow.Open(ctx, cfg, withBucket)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, wf)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
