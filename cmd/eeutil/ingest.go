package main

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/airbusgeo/ee-ingester/common"
	"github.com/airbusgeo/ee-ingester/interface/provider"
	"github.com/airbusgeo/ee-ingester/service"
	"github.com/airbusgeo/ee-ingester/workflow"
	"github.com/spf13/cobra"
)

var (
	date       string
	dates      []string
	bands      string
	ingestWait time.Duration
	timeout    time.Duration
	public     bool
	prefix     string
	noCleanup  bool
)

func uploadOptions() workflow.UploadOptions {
	return workflow.UploadOptions{
		Prefix:  prefix,
		Public:  public,
		Timeout: timeout,
		Cleanup: !noCleanup,
		Bands:   common.ParseBands(bands),
	}
}

// checkOutcome returns an error in strict mode if an ingestion did not complete
func checkOutcome(cmd *cobra.Command, wf *workflow.Workflow, outcome workflow.Outcome) error {
	if err := printJSON(cmd, outcome); err != nil {
		return err
	}
	if wf.Strict() && !outcome.AllCompleted() {
		return fmt.Errorf("failed: %v, running: %v, rejected: %v", outcome.Failed(), outcome.Running(), outcome.Rejected)
	}
	return nil
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <uri> <asset>",
	Short: "Ingest an object already staged in a bucket",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := common.ParseTemporalTag(date)
		if err != nil {
			return err
		}
		return session(cmd, false, func(ctx context.Context, wf *workflow.Workflow) error {
			taskID, err := wf.IngestAsset(ctx, args[0], args[1], tag, ingestWait, common.ParseBands(bands))
			if taskID != "" {
				fmt.Fprintln(cmd.OutOrStdout(), taskID)
			}
			if err != nil {
				return err
			}
			if public {
				return wf.SetACL(ctx, args[1], common.ACLPublic(), false)
			}
			return nil
		})
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file|url> <asset>",
	Short: "Stage a local or remote file and ingest it",
	Long: `Stage a local or remote (http, https, ftp) file and ingest it into the asset.
Archives (zip, tar.gz...) must contain exactly one file.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := common.ParseTemporalTag(date)
		if err != nil {
			return err
		}
		return session(cmd, true, func(ctx context.Context, wf *workflow.Workflow) error {
			file, cleanup, err := provider.Fetch(ctx, args[0], cfg.WorkDir)
			if err != nil {
				return err
			}
			defer cleanup()
			outcome, err := wf.UploadSingle(ctx, file, args[1], tag, uploadOptions())
			if err != nil {
				return err
			}
			return checkOutcome(cmd, wf, outcome)
		})
	},
}

// assetName returns the name of the asset of a file: its base name without extension
func assetName(folder, file string) string {
	name := filepath.Base(file)
	for ext := filepath.Ext(name); ext != ""; ext = filepath.Ext(name) {
		name = strings.TrimSuffix(name, ext)
	}
	return path.Join(folder, name)
}

var batchCmd = &cobra.Command{
	Use:   "batch <folder> <file>...",
	Short: "Stage local files and ingest them into a folder or an image collection",
	Long: `Stage local files and ingest each of them into <folder>/<name of the file without extension>.
The dates of the images can be given with --dates (once per file), in the same order as the files.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, files := args[0], args[1:]
		var tags []common.TemporalTag
		if len(dates) > 0 {
			if len(dates) != len(files) {
				return fmt.Errorf("%d dates for %d files", len(dates), len(files))
			}
			for _, d := range dates {
				tag, err := common.ParseTemporalTag(d)
				if err != nil {
					return err
				}
				tags = append(tags, tag)
			}
		}
		assets := make([]string, len(files))
		for i, f := range files {
			assets[i] = assetName(folder, f)
		}
		return session(cmd, true, func(ctx context.Context, wf *workflow.Workflow) error {
			_, outcome, err := wf.UploadBatch(ctx, files, assets, tags, uploadOptions())
			if err != nil {
				printJSON(cmd, outcome)
				return err
			}
			return checkOutcome(cmd, wf, outcome)
		})
	},
}

var waitCmd = &cobra.Command{
	Use:   "wait <task>...",
	Short: "Wait for tasks to reach a terminal state",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, false, func(ctx context.Context, wf *workflow.Workflow) error {
			outcome, err := wf.WaitForTasks(ctx, args, timeout)
			if err != nil {
				printJSON(cmd, outcome)
				return err
			}
			return checkOutcome(cmd, wf, outcome)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <task>",
	Short: "Print the status of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, false, func(ctx context.Context, wf *workflow.Workflow) error {
			status, err := wf.PollTaskState(ctx, args[0])
			if perr := printJSON(cmd, status); perr != nil && err == nil {
				err = perr
			}
			return err
		})
	},
}

var stageCmd = &cobra.Command{
	Use:   "stage <file>...",
	Short: "Upload local files to the staging bucket and print their uri",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, true, func(ctx context.Context, wf *workflow.Workflow) error {
			staged, err := wf.Stager().Stage(ctx, args, prefix)
			if err != nil {
				return err
			}
			for _, uri := range service.URIs(staged) {
				fmt.Fprintln(cmd.OutOrStdout(), uri)
			}
			return nil
		})
	},
}

var unstageCmd = &cobra.Command{
	Use:   "unstage <uri>...",
	Short: "Remove objects from the staging bucket",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, true, func(ctx context.Context, wf *workflow.Workflow) error {
			return wf.Stager().Remove(ctx, args)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{ingestCmd, uploadCmd} {
		c.Flags().StringVar(&date, "date", "", "date of the image: epoch milliseconds or a date")
	}
	batchCmd.Flags().StringArrayVar(&dates, "dates", nil, "date of an image, repeated in the order of the files")
	for _, c := range []*cobra.Command{ingestCmd, uploadCmd, batchCmd} {
		c.Flags().StringVar(&bands, "bands", "", "comma-separated names of the bands")
		c.Flags().BoolVar(&public, "public", false, "make the assets readable by everyone")
	}
	ingestCmd.Flags().DurationVar(&ingestWait, "wait", 0, "wait for the completion of the ingestion")
	for _, c := range []*cobra.Command{uploadCmd, batchCmd, waitCmd} {
		c.Flags().DurationVar(&timeout, "timeout", workflow.DefaultTimeout, "timeout of the wait (0: do not wait)")
	}
	for _, c := range []*cobra.Command{uploadCmd, batchCmd, stageCmd} {
		c.Flags().StringVar(&prefix, "prefix", "", "folder of the bucket where the files are staged")
	}
	for _, c := range []*cobra.Command{uploadCmd, batchCmd} {
		c.Flags().BoolVar(&noCleanup, "no-cleanup", false, "keep the staged files in the bucket")
	}
}
