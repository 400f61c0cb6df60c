package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/RishiKendai/codenest/internal/classifier"
	"github.com/RishiKendai/codenest/internal/features"
	"github.com/RishiKendai/codenest/internal/models"
	"github.com/RishiKendai/codenest/internal/outwriter"
	"github.com/RishiKendai/codenest/internal/plagiarism"
	"github.com/RishiKendai/codenest/internal/preprocess"
)

type compareOptions struct {
	jsonOutput    bool
	format        string
	thresholdOnly bool
	modelPath     string
	concurrency   int
	workers       int
	precision     int
	name          string
	topic         string
	noProgress    bool
}

func newCompareCmd(global *globalOptions) *cobra.Command {
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare <dir>",
		Short: "Compare every project directory inside <dir>",
		Long: `Every immediate subdirectory of <dir> is treated as one project.
All pairs are scored and printed ranked by overall similarity.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, global, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the full report as JSON (same as --format json)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(outwriter.TableOut), "output format: table, json or csv")
	cmd.Flags().BoolVar(&opts.thresholdOnly, "threshold-only", false, "only show pairs above the plagiarism threshold")
	cmd.Flags().StringVar(&opts.modelPath, "model", "", "classifier model file; trained and saved there if missing")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "projects extracted in parallel (0 = number of CPUs)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "comparison workers (0 = based on CPUs)")
	cmd.Flags().IntVar(&opts.precision, "precision", 3, "decimal places for scores")
	cmd.Flags().StringVar(&opts.name, "name", "", "batch name (defaults to the directory name)")
	cmd.Flags().StringVar(&opts.topic, "topic", "", "batch topic")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "hide the extraction progress bar")

	return cmd
}

// discoverProjects lists the immediate subdirectories of dir in name order
func discoverProjects(dir string) ([]models.ProjectRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var projects []models.ProjectRef
	for _, e := range entries {
		if !e.IsDir() || slices.Contains(features.DefaultExcludedDirs, e.Name()) {
			continue
		}
		projects = append(projects, models.ProjectRef{
			ID:   e.Name(),
			Path: filepath.Join(dir, e.Name()),
		})
	}
	return projects, nil
}

func runCompare(cmd *cobra.Command, global *globalOptions, opts *compareOptions, dir string) error {
	start := time.Now()

	format, err := outwriter.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		format = outwriter.JSONOut
	}

	featureOpts, err := global.featureOptions()
	if err != nil {
		return err
	}
	if err := requireDir(dir); err != nil {
		return err
	}

	projects, err := discoverProjects(dir)
	if err != nil {
		return err
	}
	if len(projects) < 2 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Found %d project(s) in %s; at least two are needed for a comparison\n", len(projects), dir)
	}

	name := opts.name
	if name == "" {
		name = filepath.Base(filepath.Clean(dir))
	}
	job := &models.BatchJob{
		BatchID:  uuid.NewString(),
		Name:     name,
		Topic:    opts.topic,
		Projects: projects,
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	var bar *progressbar.ProgressBar
	if !opts.noProgress && len(projects) > 0 {
		bar = progressbar.NewOptions(len(projects),
			progressbar.OptionSetDescription("Extracting features"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionClearOnFinish(),
		)
	}

	extractor := preprocess.NewService(nil, preprocess.Config{
		Concurrency: opts.concurrency,
		Features:    featureOpts,
		OnProjectDone: func(ref models.ProjectRef, bundle *models.FeatureBundle) {
			if bar != nil {
				_ = bar.Add(1)
			}
		},
	})

	var clf plagiarism.Classifier
	if opts.modelPath != "" {
		clf = classifier.NewHandle(opts.modelPath, classifier.DefaultConfig)
	}

	pool := plagiarism.NewWorkerPoolWithSize(ctx, opts.workers)
	defer pool.Close()

	pipeline := plagiarism.NewPipeline(extractor, plagiarism.NewEngine(pool, clf), nil, nil)
	report, err := pipeline.Run(ctx, job)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	return outwriter.WriteReport(cmd.OutOrStdout(), report, outwriter.Options{
		Format:        format,
		ThresholdOnly: opts.thresholdOnly,
		UseColors:     !color.NoColor,
		Precision:     opts.precision,
	}, time.Since(start))
}
