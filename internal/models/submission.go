package models

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ProjectRef points to one discovered project directory.
type ProjectRef struct {
	ID   string `json:"id" bson:"id"`
	Path string `json:"path" bson:"path"`
}

// BatchJob is a batch comparison request handed over by the discovery layer
// through the API or the Redis stream.
type BatchJob struct {
	BatchID  string       `json:"batchId"`
	Name     string       `json:"name"`
	Topic    string       `json:"topic"`
	Projects []ProjectRef `json:"projects"`
	// WorkDir is a temporary area owned by the caller. When set it must be an
	// absolute directory holding every project, and it is removed once the
	// job finishes, whatever the outcome.
	WorkDir string `json:"workDir,omitempty"`
}

// Validate checks the job is well-formed: a batch id and uniquely named
// projects with a path each.
func (j *BatchJob) Validate() error {
	if j.BatchID == "" {
		return errors.New("batchId is required")
	}
	if len(j.Projects) == 0 {
		return errors.New("at least one project is required")
	}
	seen := make(map[string]bool, len(j.Projects))
	for i, p := range j.Projects {
		if p.ID == "" {
			return fmt.Errorf("project %d: id is required", i)
		}
		if p.Path == "" {
			return fmt.Errorf("project %s: path is required", p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate project id %s", p.ID)
		}
		seen[p.ID] = true
	}
	return j.ValidateWorkDir()
}

// ValidateWorkDir accepts an empty WorkDir, or a clean absolute directory
// other than the filesystem root that strictly contains every project path.
func (j *BatchJob) ValidateWorkDir() error {
	if j.WorkDir == "" {
		return nil
	}
	w := j.WorkDir
	if !filepath.IsAbs(w) || filepath.Clean(w) != w {
		return fmt.Errorf("workDir %q must be a clean absolute path", w)
	}
	if filepath.Dir(w) == w {
		return fmt.Errorf("workDir %q must not be the filesystem root", w)
	}
	for _, p := range j.Projects {
		path := filepath.Clean(p.Path)
		if !filepath.IsAbs(path) {
			return fmt.Errorf("project %s: path must be absolute when workDir is set", p.ID)
		}
		rel, err := filepath.Rel(w, path)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("project %s: path is outside workDir", p.ID)
		}
	}
	return nil
}
