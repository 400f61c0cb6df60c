package models

import "time"

// FeatureBundle is the structured summary of one project's code.
// It is built once by the feature aggregator and treated as read-only afterwards.
type FeatureBundle struct {
	ProjectID string `bson:"projectId" json:"projectId"`

	TotalFiles      int            `bson:"totalFiles" json:"totalFiles"`
	LanguageCounts  map[string]int `bson:"languageCounts" json:"languageCounts"`
	ExtensionCounts map[string]int `bson:"extensionCounts" json:"extensionCounts"`
	TotalLines      int            `bson:"totalLines" json:"totalLines"`
	CodeLines       int            `bson:"codeLines" json:"codeLines"`
	CommentLines    int            `bson:"commentLines" json:"commentLines"`
	BlankLines      int            `bson:"blankLines" json:"blankLines"`
	FunctionsCount  int            `bson:"functionsCount" json:"functionsCount"`
	ClassesCount    int            `bson:"classesCount" json:"classesCount"`
	ParseFailures   int            `bson:"parseFailures" json:"parseFailures"`
	UnreadableFiles int            `bson:"unreadableFiles" json:"unreadableFiles"`

	Imports        []string `bson:"imports" json:"imports"`
	FunctionNames  []string `bson:"functionNames" json:"functionNames"`
	VariableNames  []string `bson:"variableNames" json:"variableNames"`
	StringLiterals []string `bson:"stringLiterals" json:"stringLiterals"`
	ControlFlow    []string `bson:"controlFlow" json:"controlFlow"`
	Keywords       []string `bson:"keywords" json:"keywords"`

	// FileHashes holds one hex SHA-256 digest per recognized source file.
	FileHashes []string `bson:"fileHashes" json:"fileHashes"`
	// Tokens is the concatenated lowercase token stream of every source file.
	Tokens []string `bson:"tokens" json:"tokens"`
}

// NewFeatureBundle returns an empty, well-formed bundle.
func NewFeatureBundle(projectID string) *FeatureBundle {
	return &FeatureBundle{
		ProjectID:       projectID,
		LanguageCounts:  make(map[string]int),
		ExtensionCounts: make(map[string]int),
		Imports:         []string{},
		FunctionNames:   []string{},
		VariableNames:   []string{},
		StringLiterals:  []string{},
		ControlFlow:     []string{},
		Keywords:        []string{},
		FileHashes:      []string{},
		Tokens:          []string{},
	}
}

// FileFeatures is the structural contribution of a single source file.
type FileFeatures struct {
	FunctionsCount int
	ClassesCount   int
	Imports        []string
	FunctionNames  []string
	VariableNames  []string
	StringLiterals []string
	ControlFlow    []string
	Keywords       []string
}

// Merge appends the file's structural features to the bundle.
func (b *FeatureBundle) Merge(f *FileFeatures) {
	if f == nil {
		return
	}
	b.FunctionsCount += f.FunctionsCount
	b.ClassesCount += f.ClassesCount
	b.Imports = append(b.Imports, f.Imports...)
	b.FunctionNames = append(b.FunctionNames, f.FunctionNames...)
	b.VariableNames = append(b.VariableNames, f.VariableNames...)
	b.StringLiterals = append(b.StringLiterals, f.StringLiterals...)
	b.ControlFlow = append(b.ControlFlow, f.ControlFlow...)
	b.Keywords = append(b.Keywords, f.Keywords...)
}

// ProjectSubmission is a stored feature bundle for one project of a batch.
type ProjectSubmission struct {
	BatchID   string         `bson:"batchId" json:"batchId"`
	ProjectID string         `bson:"projectId" json:"projectId"`
	Path      string         `bson:"path" json:"path"`
	Features  *FeatureBundle `bson:"features" json:"features"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
}
