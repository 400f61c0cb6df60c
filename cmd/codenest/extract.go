package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/RishiKendai/codenest/internal/features"
	"github.com/RishiKendai/codenest/internal/outwriter"
)

func newExtractCmd(global *globalOptions) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "extract <project>",
		Short: "Print the feature bundle of one project as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			featureOpts, err := global.featureOptions()
			if err != nil {
				return err
			}

			root := args[0]
			id := projectID
			if id == "" {
				id = filepath.Base(filepath.Clean(root))
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			bundle, err := features.ExtractFeatures(ctx, id, root, featureOpts)
			if err != nil {
				return err
			}
			return outwriter.WriteBundle(cmd.OutOrStdout(), bundle)
		},
	}

	cmd.Flags().StringVar(&projectID, "id", "", "project id (defaults to the directory name)")
	return cmd
}
