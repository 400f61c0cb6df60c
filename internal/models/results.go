package models

import (
	"time"
)

type Step string

const (
	StepIdle       Step = "idle"
	StepInitiated  Step = "initiated"
	StepExtracting Step = "extracting"
	StepComparing  Step = "comparing"
	StepCompleted  Step = "completed"
	StepFailed     Step = "failed"
)

// SignalVector holds the individual similarity ratios between two projects
// and the combined score.
type SignalVector struct {
	HashSimilarity      float64 `bson:"hash_similarity" json:"hash_similarity"`
	ContentSimilarity   float64 `bson:"tfidf_similarity" json:"tfidf_similarity"`
	FunctionSimilarity  float64 `bson:"function_similarity" json:"function_similarity"`
	ImportSimilarity    float64 `bson:"import_similarity" json:"import_similarity"`
	VariableSimilarity  float64 `bson:"variable_similarity" json:"variable_similarity"`
	LengthSimilarity    float64 `bson:"length_similarity" json:"length_similarity"`
	KeywordSimilarity   float64 `bson:"keyword_similarity" json:"keyword_similarity"`
	StructureDifference float64 `bson:"structure_difference" json:"structure_difference"`
	Overall             float64 `bson:"overall_similarity" json:"overall_similarity"`
	OverrideApplied     bool    `bson:"override_applied" json:"override_applied"`
}

// ClassifierInput is the 5-feature subset of a SignalVector the classifier consumes.
type ClassifierInput struct {
	Content             float64 `json:"tfidf_similarity"`
	Hash                float64 `json:"hash_similarity"`
	Import              float64 `json:"import_similarity"`
	StructureDifference float64 `json:"structure_difference"`
	Keyword             float64 `json:"keyword_similarity"`
}

// ClassifierInput extracts the classifier features from the vector.
func (s SignalVector) ClassifierInput() ClassifierInput {
	return ClassifierInput{
		Content:             s.ContentSimilarity,
		Hash:                s.HashSimilarity,
		Import:              s.ImportSimilarity,
		StructureDifference: s.StructureDifference,
		Keyword:             s.KeywordSimilarity,
	}
}

// Vector returns the features in training column order.
func (c ClassifierInput) Vector() []float64 {
	return []float64{c.Content, c.Hash, c.Import, c.StructureDifference, c.Keyword}
}

const (
	ComparisonOK    = "ok"
	ComparisonError = "error"
)

// ComparisonRecord is the result of scoring one unordered project pair.
type ComparisonRecord struct {
	BatchID              string       `bson:"batchId" json:"batchId"`
	IndexA               int          `bson:"indexA" json:"indexA"`
	IndexB               int          `bson:"indexB" json:"indexB"`
	ProjectA             string       `bson:"projectA" json:"projectA"`
	ProjectB             string       `bson:"projectB" json:"projectB"`
	Signals              SignalVector `bson:"signals" json:"signals"`
	IsPlagiarized        bool         `bson:"is_plagiarized" json:"is_plagiarized"`
	Status               string       `bson:"status" json:"status"`
	Error                string       `bson:"error,omitempty" json:"error,omitempty"`
	ClassifierLabel      *bool        `bson:"classifier_label,omitempty" json:"classifier_label,omitempty"`
	ClassifierConfidence *float64     `bson:"classifier_confidence,omitempty" json:"classifier_confidence,omitempty"`
	CreatedAt            time.Time    `bson:"createdAt" json:"createdAt"`
}

// ProjectSummary is the per-project view of a batch.
type ProjectSummary struct {
	ProjectID       string  `bson:"projectId" json:"projectId"`
	TotalFiles      int     `bson:"total_files" json:"total_files"`
	CodeLines       int     `bson:"code_lines" json:"code_lines"`
	MaxSimilarity   float64 `bson:"max_similarity" json:"max_similarity"`
	SimilarTo       string  `bson:"similar_to,omitempty" json:"similar_to,omitempty"`
	PlagiarismCount int     `bson:"plagiarism_count" json:"plagiarism_count"`
	Status          string  `bson:"status" json:"status"` // Flagged, Clean
}

// SharedFile lists the projects that contain a byte-identical source file.
type SharedFile struct {
	Hash     string   `bson:"hash" json:"hash"`
	Projects []string `bson:"projects" json:"projects"`
}

// BatchReport represents the overall plagiarism report of one batch run
type BatchReport struct {
	BatchID                string             `bson:"batchId" json:"batchId"`
	Name                   string             `bson:"name" json:"name"`
	Topic                  string             `bson:"topic" json:"topic"`
	Status                 string             `bson:"status" json:"status"` // pending, completed, failed
	TotalProjects          int                `bson:"total_projects" json:"total_projects"`
	TotalComparisons       int                `bson:"total_comparisons" json:"total_comparisons"`
	PlagiarizedComparisons int                `bson:"plagiarized_comparisons" json:"plagiarized_comparisons"`
	FlaggedProjects        int                `bson:"flagged_projects" json:"flagged_projects"`
	CleanProjects          int                `bson:"clean_projects" json:"clean_projects"`
	PlagiarismPercentage   float64            `bson:"plagiarism_percentage" json:"plagiarism_percentage"`
	Comparisons            []ComparisonRecord `bson:"comparisons" json:"comparisons"`
	Projects               []ProjectSummary   `bson:"projects" json:"projects"`
	SharedFiles            []SharedFile       `bson:"shared_files" json:"shared_files"`
	Error                  string             `bson:"error,omitempty" json:"error,omitempty"` // cause of a failed batch
	CreatedAt              time.Time          `bson:"createdAt" json:"createdAt"`
}

// ComputeResponse represents the response from compute endpoint
type ComputeResponse struct {
	Step    Step   `json:"step"`
	BatchID string `json:"batchId"`
}

// CompareRequest asks for a direct comparison of two project directories.
type CompareRequest struct {
	ProjectA string `json:"projectA" binding:"required"`
	ProjectB string `json:"projectB" binding:"required"`
}

// CompareResponse carries the signals of a direct comparison.
type CompareResponse struct {
	ProjectA             string       `json:"projectA"`
	ProjectB             string       `json:"projectB"`
	Signals              SignalVector `json:"signals"`
	IsPlagiarized        bool         `json:"is_plagiarized"`
	RiskLevel            string       `json:"risk_level"`
	ClassifierLabel      *bool        `json:"classifier_label,omitempty"`
	ClassifierConfidence *float64     `json:"classifier_confidence,omitempty"`
}

// StatusResponse reports the current step of a batch.
type StatusResponse struct {
	BatchID string `json:"batchId"`
	Step    Step   `json:"step"`
}

// ComparisonsResponse lists the stored comparison records of a batch.
type ComparisonsResponse struct {
	BatchID     string             `json:"batchId"`
	Count       int                `json:"count"`
	Comparisons []ComparisonRecord `json:"comparisons"`
}

// ClassifyResponse carries the classifier opinion.
type ClassifyResponse struct {
	IsPlagiarized bool    `json:"is_plagiarized"`
	Confidence    float64 `json:"confidence"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
