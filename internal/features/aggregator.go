package features

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/codenest/internal/metrics"
	"github.com/RishiKendai/codenest/internal/models"
)

// Options tunes project feature extraction.
type Options struct {
	DecodePolicy DecodePolicy
	// ExcludePatterns are doublestar globs matched against the slash separated
	// path relative to the project root and against the base name.
	ExcludePatterns []string
}

// ExtractFeatures walks a project directory and builds its feature bundle.
// Per-file problems are counted and logged; only an unwalkable root or a
// cancelled context returns an error. The project tree is never modified.
func ExtractFeatures(ctx context.Context, projectID, root string, opts Options) (*models.FeatureBundle, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat project root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}
	if opts.DecodePolicy == "" {
		opts.DecodePolicy = DecodeSkip
	}

	bundle := models.NewFeatureBundle(projectID)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			log.Warn().Err(walkErr).Str("projectId", projectID).Str("path", path).Msg("Skipping unreadable path")
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != root && (slices.Contains(DefaultExcludedDirs, d.Name()) || excluded(opts.ExcludePatterns, rel, d.Name())) {
				return filepath.SkipDir
			}
			return nil
		}
		if excluded(opts.ExcludePatterns, rel, d.Name()) {
			return nil
		}

		bundle.TotalFiles++
		ext := strings.ToLower(filepath.Ext(d.Name()))
		bundle.ExtensionCounts[ext]++

		lang, ok := LookupLanguage(d.Name())
		if !ok {
			return nil
		}
		processFile(ctx, bundle, lang, path, rel, opts.DecodePolicy)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to walk project %s: %w", root, err)
	}

	log.Debug().
		Str("projectId", projectID).
		Int("files", bundle.TotalFiles).
		Int("codeLines", bundle.CodeLines).
		Int("hashes", len(bundle.FileHashes)).
		Msg("Features extracted")

	return bundle, nil
}

func processFile(ctx context.Context, bundle *models.FeatureBundle, lang *Language, path, rel string, policy DecodePolicy) {
	raw, err := os.ReadFile(path)
	if err == nil {
		var content string
		content, err = Decode(raw, policy)
		if err == nil {
			addContent(ctx, bundle, lang, rel, content)
			return
		}
	}

	bundle.UnreadableFiles++
	metrics.UnreadableFiles.Inc()
	log.Warn().Err(err).Str("projectId", bundle.ProjectID).Str("file", rel).Msg("Skipping unreadable file")
}

func addContent(ctx context.Context, bundle *models.FeatureBundle, lang *Language, rel, content string) {
	bundle.LanguageCounts[lang.Name]++
	metrics.FilesProcessed.WithLabelValues(lang.Name).Inc()

	bundle.Tokens = append(bundle.Tokens, TokenList(content)...)

	lines := strings.Split(content, "\n")
	bundle.TotalLines += len(lines)
	for _, line := range lines {
		switch lang.classifyLine(line) {
		case lineBlank:
			bundle.BlankLines++
		case lineComment:
			bundle.CommentLines++
		default:
			bundle.CodeLines++
		}
	}

	var (
		ff  *models.FileFeatures
		err error
	)
	switch lang.Kind {
	case KindGrammar:
		ff, err = ExtractPython(ctx, []byte(content))
	case KindPattern:
		ff, err = lang.Profile.Extract([]byte(content))
	}
	if err != nil {
		bundle.ParseFailures++
		metrics.ParseFailures.WithLabelValues(lang.Name).Inc()
		log.Warn().Err(err).Str("projectId", bundle.ProjectID).Str("file", rel).Msg("Failed to parse file, structural features skipped")
	} else {
		bundle.Merge(ff)
	}

	bundle.FileHashes = append(bundle.FileHashes, computeHash(content))
}

func excluded(patterns []string, rel, name string) bool {
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

func computeHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
