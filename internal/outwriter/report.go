package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/RishiKendai/codenest/internal/models"
	"github.com/RishiKendai/codenest/internal/plagiarism"
)

type Format string

const (
	TableOut Format = "table"
	JSONOut  Format = "json"
	CSVOut   Format = "csv"
)

// ParseFormat validates an output format name
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case TableOut, JSONOut, CSVOut:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown output format %q: must be table, json or csv", s)
}

// Options controls how a batch report is written
type Options struct {
	Format Format
	// ThresholdOnly keeps only the pairs above the plagiarism threshold
	ThresholdOnly bool
	UseColors     bool
	Precision     int
}

// WriteReport outputs the batch report, dispatching on the configured format.
func WriteReport(w io.Writer, report *models.BatchReport, opts Options, duration time.Duration) error {
	view := *report
	if opts.ThresholdOnly {
		view.Comparisons = flagged(report.Comparisons)
	}

	switch opts.Format {
	case JSONOut:
		if err := writeJSON(w, &view); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case CSVOut:
		csvWriter := csv.NewWriter(w)
		if err := writeCSV(csvWriter, &view, opts); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
		csvWriter.Flush()
		return csvWriter.Error()
	default:
		return writeTable(w, &view, opts, duration)
	}
	return nil
}

func flagged(records []models.ComparisonRecord) []models.ComparisonRecord {
	out := make([]models.ComparisonRecord, 0, len(records))
	for _, r := range records {
		if r.Status == models.ComparisonOK && r.IsPlagiarized {
			out = append(out, r)
		}
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func verdict(r models.ComparisonRecord) string {
	if r.Status != models.ComparisonOK {
		return "error"
	}
	return plagiarism.GetRiskLevel(r.Signals.Overall)
}

func classifierColumn(r models.ComparisonRecord, precision int) string {
	if r.ClassifierLabel == nil || r.ClassifierConfidence == nil {
		return "-"
	}
	label := "clean"
	if *r.ClassifierLabel {
		label = "copied"
	}
	return fmt.Sprintf("%s (%.*f)", label, precision, *r.ClassifierConfidence)
}

func writeTable(w io.Writer, report *models.BatchReport, opts Options, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Rank", "Project A", "Project B", "Overall", "Hash", "Content", "Functions", "Imports", "Verdict", "Classifier"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	red, yellow, green := fmt.Sprint, fmt.Sprint, fmt.Sprint
	if opts.UseColors {
		red = color.New(color.FgRed, color.Bold).SprintFunc()
		yellow = color.New(color.FgYellow).SprintFunc()
		green = color.New(color.FgGreen).SprintFunc()
	}

	fmtFloat := func(v float64) string { return strconv.FormatFloat(v, 'f', opts.Precision, 64) }

	var data [][]string
	for i, r := range report.Comparisons {
		v := verdict(r)
		switch {
		case r.Status != models.ComparisonOK:
			v = yellow(v)
		case r.IsPlagiarized:
			v = red(v)
		case r.Signals.Overall >= 0.3:
			v = yellow(v)
		default:
			v = green(v)
		}

		data = append(data, []string{
			strconv.Itoa(i + 1),
			r.ProjectA,
			r.ProjectB,
			fmtFloat(r.Signals.Overall),
			fmtFloat(r.Signals.HashSimilarity),
			fmtFloat(r.Signals.ContentSimilarity),
			fmtFloat(r.Signals.FunctionSimilarity),
			fmtFloat(r.Signals.ImportSimilarity),
			v,
			classifierColumn(r, opts.Precision),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Projects: %d, Comparisons: %d, Plagiarized pairs: %d\n",
		report.TotalProjects, report.TotalComparisons, report.PlagiarizedComparisons); err != nil {
		return err
	}
	summary := fmt.Sprintf("Flagged projects: %d of %d (%.1f%%)", report.FlaggedProjects, report.TotalProjects, report.PlagiarismPercentage)
	if report.FlaggedProjects > 0 {
		summary = red(summary)
	} else {
		summary = green(summary)
	}
	if _, err := fmt.Fprintln(w, summary); err != nil {
		return err
	}
	if len(report.SharedFiles) > 0 {
		if _, err := fmt.Fprintf(w, "Identical files shared between projects: %d\n", len(report.SharedFiles)); err != nil {
			return err
		}
	}
	if duration > 0 {
		if _, err := fmt.Fprintf(w, "Analysis completed in %v\n", duration.Round(time.Millisecond)); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(w *csv.Writer, report *models.BatchReport, opts Options) error {
	header := []string{
		"rank",
		"project_a",
		"project_b",
		"overall_similarity",
		"hash_similarity",
		"tfidf_similarity",
		"function_similarity",
		"import_similarity",
		"variable_similarity",
		"length_similarity",
		"is_plagiarized",
		"status",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	fmtFloat := func(v float64) string { return strconv.FormatFloat(v, 'f', opts.Precision, 64) }
	for i, r := range report.Comparisons {
		row := []string{
			strconv.Itoa(i + 1),
			r.ProjectA,
			r.ProjectB,
			fmtFloat(r.Signals.Overall),
			fmtFloat(r.Signals.HashSimilarity),
			fmtFloat(r.Signals.ContentSimilarity),
			fmtFloat(r.Signals.FunctionSimilarity),
			fmtFloat(r.Signals.ImportSimilarity),
			fmtFloat(r.Signals.VariableSimilarity),
			fmtFloat(r.Signals.LengthSimilarity),
			strconv.FormatBool(r.IsPlagiarized),
			r.Status,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteBundle prints a feature bundle as indented JSON
func WriteBundle(w io.Writer, bundle *models.FeatureBundle) error {
	return writeJSON(w, bundle)
}
