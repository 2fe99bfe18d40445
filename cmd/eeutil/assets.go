package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/airbusgeo/ee-ingester/catalog"
	"github.com/airbusgeo/ee-ingester/workflow"
	"github.com/spf13/cobra"
)

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Print the home directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, false, func(ctx context.Context, wf *workflow.Workflow) error {
			h, err := wf.Home(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		})
	},
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Print the quota of the home directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, false, func(ctx context.Context, wf *workflow.Workflow) error {
			q, err := wf.Quota(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, q)
		})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <asset>",
	Short: "Print the metadata of an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, false, func(ctx context.Context, wf *workflow.Workflow) error {
			asset, err := wf.Info(ctx, args[0])
			if err != nil {
				return err
			}
			if asset == nil {
				return catalog.ErrAssetNotFound{Asset: args[0]}
			}
			return printJSON(cmd, asset)
		})
	},
}

var existsCmd = &cobra.Command{
	Use:   "exists <asset>",
	Short: "Print true if the asset exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, false, func(ctx context.Context, wf *workflow.Workflow) error {
			ok, err := wf.Exists(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		})
	},
}

var lsAbsolute bool

var lsCmd = &cobra.Command{
	Use:   "ls [folder]",
	Short: "List the children of a folder or an image collection",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ""
		if len(args) == 1 {
			p = args[0]
		}
		return session(cmd, false, func(ctx context.Context, wf *workflow.Workflow) error {
			children, err := wf.Ls(ctx, p, lsAbsolute)
			if err != nil {
				return err
			}
			for _, c := range children {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		})
	},
}

var (
	mkdirCollection bool
	mkdirOverwrite  bool
	mkdirPublic     bool
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <folder>",
	Short: "Create a folder or an image collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, false, func(ctx context.Context, wf *workflow.Workflow) error {
			return wf.CreateFolder(ctx, args[0], mkdirCollection, mkdirOverwrite, mkdirPublic)
		})
	},
}

var aclCmd = &cobra.Command{
	Use:   "acl",
	Short: "Get or set the access control list of an asset",
}

var aclGetCmd = &cobra.Command{
	Use:   "get <asset>",
	Short: "Print the acl of an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, false, func(ctx context.Context, wf *workflow.Workflow) error {
			acl, err := wf.ACL(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, acl)
		})
	},
}

var aclOverwrite bool

var aclSetCmd = &cobra.Command{
	Use:   "set <asset> <public|private|json>",
	Short: "Change the acl of an asset",
	Long: `Change the acl of an asset. The change is "public", "private" or a json document
with the optional fields "writers", "readers" and "all_users_can_read".
The change is merged into the current acl, unless --overwrite is given.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		change, err := catalog.ParseACLChange(args[1])
		if err != nil {
			return err
		}
		return session(cmd, false, func(ctx context.Context, wf *workflow.Workflow) error {
			return wf.SetACL(ctx, args[0], change, aclOverwrite)
		})
	},
}

var propsCmd = &cobra.Command{
	Use:   "props <asset> <json>",
	Short: "Set the properties of an asset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		properties := map[string]interface{}{}
		if err := json.Unmarshal([]byte(args[1]), &properties); err != nil {
			return fmt.Errorf("properties: %w", err)
		}
		return session(cmd, false, func(ctx context.Context, wf *workflow.Workflow) error {
			return wf.SetProperties(ctx, args[0], properties)
		})
	},
}

var cpCmd = &cobra.Command{
	Use:   "cp <src> <dst>",
	Short: "Copy an asset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, false, func(ctx context.Context, wf *workflow.Workflow) error {
			return wf.Copy(ctx, args[0], args[1])
		})
	},
}

var rmRecursive bool

var rmCmd = &cobra.Command{
	Use:   "rm <asset>...",
	Short: "Remove assets",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, false, func(ctx context.Context, wf *workflow.Workflow) error {
			for _, asset := range args {
				if err := wf.Remove(ctx, asset, rmRecursive); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	lsCmd.Flags().BoolVarP(&lsAbsolute, "absolute", "a", false, "print absolute paths")

	mkdirCmd.Flags().BoolVarP(&mkdirCollection, "collection", "c", false, "create an image collection")
	mkdirCmd.Flags().BoolVarP(&mkdirOverwrite, "overwrite", "f", false, "overwrite an existing asset")
	mkdirCmd.Flags().BoolVar(&mkdirPublic, "public", false, "make the folder readable by everyone")

	aclSetCmd.Flags().BoolVar(&aclOverwrite, "overwrite", false, "replace the acl instead of merging the change")
	aclCmd.AddCommand(aclGetCmd, aclSetCmd)

	rmCmd.Flags().BoolVarP(&rmRecursive, "recursive", "r", false, "remove the children of the folders and collections")
}
