package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RishiKendai/codenest/internal/classifier"
)

func newTrainCmd() *cobra.Command {
	var (
		out   string
		trees int
		seed  uint64
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the similarity classifier and save it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := classifier.DefaultConfig
			cfg.Trees = trees
			cfg.Seed = seed

			m, err := classifier.Train(cfg)
			if err != nil {
				return err
			}
			if err := m.Save(out); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Model saved to %s (%d trees, held-out accuracy %.3f)\n", out, len(m.Forest.Trees), m.Accuracy)
			return err
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "models/classifier.json", "output model file")
	cmd.Flags().IntVar(&trees, "trees", classifier.DefaultConfig.Trees, "number of trees")
	cmd.Flags().Uint64Var(&seed, "seed", classifier.DefaultConfig.Seed, "random seed")
	return cmd
}
