package plagiarism

import (
	"cmp"
	"slices"

	"github.com/RishiKendai/codenest/internal/models"
)

// GII (Global Inverted Index) maps file hash → [project ids]
type GII map[string][]string

// BuildGII builds the Global Inverted Index from feature bundles.
// Hashes that appear in only one project are dropped.
func BuildGII(bundles []*models.FeatureBundle) GII {
	gii := make(GII)

	// First pass: Build hash → [projectIds] mapping, one entry per project
	for _, bundle := range bundles {
		if bundle == nil {
			continue
		}
		seen := make(map[string]bool, len(bundle.FileHashes))
		for _, hash := range bundle.FileHashes {
			if seen[hash] {
				continue
			}
			seen[hash] = true
			gii[hash] = append(gii[hash], bundle.ProjectID)
		}
	}

	// Second pass: Filter out hashes owned by a single project
	filteredGII := make(GII)
	for hash, projectIDs := range gii {
		if len(projectIDs) >= 2 {
			filteredGII[hash] = projectIDs
		}
	}

	return filteredGII
}

// SharedFiles lists the shared hashes, most widely shared first and then by hash
func (g GII) SharedFiles() []models.SharedFile {
	shared := make([]models.SharedFile, 0, len(g))
	for hash, projectIDs := range g {
		projects := slices.Clone(projectIDs)
		slices.Sort(projects)
		shared = append(shared, models.SharedFile{Hash: hash, Projects: projects})
	}

	slices.SortFunc(shared, func(a, b models.SharedFile) int {
		if len(a.Projects) != len(b.Projects) {
			return len(b.Projects) - len(a.Projects)
		}
		return cmp.Compare(a.Hash, b.Hash)
	})
	return shared
}
