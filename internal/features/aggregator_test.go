package features

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestExtractFeatures(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"app/main.py":               "import os\n\n# entry\ndef run():\n    return os.getcwd()\n",
		"app/broken.py":             "def broken(:\n    pass\n",
		"web/app.js":                "const x = require('express');\n",
		"README.md":                 "# readme\n",
		"node_modules/lib/index.js": "function ignored() {}\n",
		".git/config":               "[core]\n",
	})

	bundle, err := ExtractFeatures(context.Background(), "p1", root, Options{})
	require.NoError(t, err)

	assert.Equal(t, "p1", bundle.ProjectID)
	assert.Equal(t, 4, bundle.TotalFiles)
	assert.Equal(t, map[string]int{"python": 2, "javascript": 1}, bundle.LanguageCounts)
	assert.Equal(t, 1, bundle.ExtensionCounts[".md"])
	assert.Equal(t, 2, bundle.ExtensionCounts[".py"])
	assert.Equal(t, 1, bundle.ParseFailures)
	assert.Zero(t, bundle.UnreadableFiles)

	// broken.py still contributes its hash and tokens
	assert.Len(t, bundle.FileHashes, 3)
	assert.Contains(t, bundle.Tokens, "broken")
	assert.NotContains(t, bundle.Tokens, "ignored")

	assert.Equal(t, []string{"run"}, bundle.FunctionNames)
	assert.ElementsMatch(t, []string{"os", "express"}, bundle.Imports)
	assert.Equal(t, []string{"x"}, bundle.VariableNames)
}

func TestExtractFeaturesLineCounts(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.py": "x = 1\n\n# comment\n",
	})

	bundle, err := ExtractFeatures(context.Background(), "p", root, Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, bundle.TotalLines)
	assert.Equal(t, 1, bundle.CodeLines)
	assert.Equal(t, 1, bundle.CommentLines)
	assert.Equal(t, 2, bundle.BlankLines)
}

func TestExtractFeaturesEmptyDirectory(t *testing.T) {
	bundle, err := ExtractFeatures(context.Background(), "empty", t.TempDir(), Options{})
	require.NoError(t, err)

	assert.Zero(t, bundle.TotalFiles)
	assert.NotNil(t, bundle.LanguageCounts)
	assert.NotNil(t, bundle.ExtensionCounts)
	for _, list := range [][]string{
		bundle.Imports, bundle.FunctionNames, bundle.VariableNames, bundle.StringLiterals,
		bundle.ControlFlow, bundle.Keywords, bundle.FileHashes, bundle.Tokens,
	} {
		assert.NotNil(t, list)
		assert.Empty(t, list)
	}
}

func TestExtractFeaturesRootErrors(t *testing.T) {
	_, err := ExtractFeatures(context.Background(), "p", filepath.Join(t.TempDir(), "missing"), Options{})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.py")
	require.NoError(t, os.WriteFile(file, []byte("x = 1\n"), 0o644))
	_, err = ExtractFeatures(context.Background(), "p", file, Options{})
	assert.Error(t, err)
}

func TestExtractFeaturesCancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.py": "x = 1\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExtractFeatures(ctx, "p", root, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractFeaturesExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/a.js":          "var a = 1;\n",
		"src/a.test.js":     "var b = 2;\n",
		"vendor/lib/dep.js": "var c = 3;\n",
	})

	bundle, err := ExtractFeatures(context.Background(), "p", root, Options{
		ExcludePatterns: []string{"*.test.js", "vendor"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, bundle.TotalFiles)
	assert.Equal(t, []string{"a"}, bundle.VariableNames)
}

func TestExtractFeaturesDecodePolicy(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.js": "var a = 1;\xff\n"})

	skipped, err := ExtractFeatures(context.Background(), "p", root, Options{DecodePolicy: DecodeSkip})
	require.NoError(t, err)
	assert.Zero(t, skipped.UnreadableFiles)
	assert.Len(t, skipped.FileHashes, 1)

	replaced, err := ExtractFeatures(context.Background(), "p", root, Options{DecodePolicy: DecodeReplace})
	require.NoError(t, err)
	assert.Len(t, replaced.FileHashes, 1)
	assert.NotEqual(t, skipped.FileHashes[0], replaced.FileHashes[0])

	failed, err := ExtractFeatures(context.Background(), "p", root, Options{DecodePolicy: DecodeFail})
	require.NoError(t, err)
	assert.Equal(t, 1, failed.TotalFiles)
	assert.Equal(t, 1, failed.UnreadableFiles)
	assert.Empty(t, failed.FileHashes)
	assert.Empty(t, failed.Tokens)
	assert.Empty(t, failed.LanguageCounts)
}

func TestExtractFeaturesIdenticalContentSharesHash(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeFiles(t, a, map[string]string{"x/main.py": "print('hi')\n"})
	writeFiles(t, b, map[string]string{"renamed.py": "print('hi')\n"})

	ba, err := ExtractFeatures(context.Background(), "a", a, Options{})
	require.NoError(t, err)
	bb, err := ExtractFeatures(context.Background(), "b", b, Options{})
	require.NoError(t, err)

	assert.Equal(t, ba.FileHashes, bb.FileHashes)
	assert.Len(t, ba.FileHashes[0], 64)
}
