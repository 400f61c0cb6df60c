package plagiarism

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/RishiKendai/codenest/internal/models"
)

const (
	ProjectFlagged = "Flagged"
	ProjectClean   = "Clean"

	ReportCompleted = "completed"
	ReportFailed    = "failed"
)

// BuildReport aggregates the comparison records of a batch into a ranked report.
// Error records are listed but never count as plagiarism evidence.
func BuildReport(job models.BatchJob, bundles []*models.FeatureBundle, records []models.ComparisonRecord) *models.BatchReport {
	report := &models.BatchReport{
		BatchID:          job.BatchID,
		Name:             job.Name,
		Topic:            job.Topic,
		Status:           ReportCompleted,
		TotalProjects:    len(bundles),
		TotalComparisons: len(records),
		Comparisons:      slices.Clone(records),
		Projects:         make([]models.ProjectSummary, 0, len(bundles)),
		SharedFiles:      BuildGII(bundles).SharedFiles(),
		CreatedAt:        time.Now().UTC(),
	}
	if report.Comparisons == nil {
		report.Comparisons = []models.ComparisonRecord{}
	}

	// Rank by overall score, pair order breaks ties
	slices.SortStableFunc(report.Comparisons, func(a, b models.ComparisonRecord) int {
		return cmp.Compare(b.Signals.Overall, a.Signals.Overall)
	})

	flagged := make(map[string]bool)
	for _, r := range records {
		if r.Status == models.ComparisonOK && r.IsPlagiarized {
			report.PlagiarizedComparisons++
			flagged[r.ProjectA] = true
			flagged[r.ProjectB] = true
		}
	}

	for i, bundle := range bundles {
		summary := summarizeProject(projectID(bundle, i), records)
		if bundle != nil {
			summary.TotalFiles = bundle.TotalFiles
			summary.CodeLines = bundle.CodeLines
		}
		report.Projects = append(report.Projects, summary)
	}

	report.FlaggedProjects = len(flagged)
	report.CleanProjects = report.TotalProjects - report.FlaggedProjects
	if report.TotalProjects > 0 {
		pct := float64(report.FlaggedProjects) / float64(report.TotalProjects) * 100
		report.PlagiarismPercentage = math.Round(pct*10) / 10
	}

	return report
}

func summarizeProject(id string, records []models.ComparisonRecord) models.ProjectSummary {
	summary := models.ProjectSummary{ProjectID: id, Status: ProjectClean}

	for _, r := range records {
		if r.Status != models.ComparisonOK {
			continue
		}
		var other string
		switch id {
		case r.ProjectA:
			other = r.ProjectB
		case r.ProjectB:
			other = r.ProjectA
		default:
			continue
		}

		if r.Signals.Overall > summary.MaxSimilarity {
			summary.MaxSimilarity = r.Signals.Overall
			summary.SimilarTo = other
		}
		if r.IsPlagiarized {
			summary.PlagiarismCount++
		}
	}

	if summary.PlagiarismCount > 0 {
		summary.Status = ProjectFlagged
	}
	return summary
}
