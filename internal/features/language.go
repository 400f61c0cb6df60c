package features

import (
	"path/filepath"
	"strings"
)

// Kind selects the structural extractor used for a language.
type Kind int

const (
	KindNone Kind = iota
	KindGrammar
	KindPattern
)

func (k Kind) String() string {
	switch k {
	case KindGrammar:
		return "grammar"
	case KindPattern:
		return "pattern"
	default:
		return "none"
	}
}

// Language describes how files of one extension are analyzed.
type Language struct {
	Name    string
	Kind    Kind
	Profile *PatternProfile // set for KindPattern

	// CommentMarkers are line prefixes that make a line a comment line.
	CommentMarkers []string
	// BlockOpen marks a line as a comment wherever it appears in the line.
	BlockOpen string
}

var (
	langPython = &Language{
		Name:           "python",
		Kind:           KindGrammar,
		CommentMarkers: []string{"#"},
	}
	langJavaScript = &Language{
		Name:           "javascript",
		Kind:           KindPattern,
		Profile:        javascriptProfile,
		CommentMarkers: []string{"//", "/*"},
		BlockOpen:      "/*",
	}
	langPHP = &Language{
		Name:           "php",
		Kind:           KindPattern,
		Profile:        phpProfile,
		CommentMarkers: []string{"#", "//", "/*"},
		BlockOpen:      "/*",
	}
	langJava = &Language{
		Name:           "java",
		Kind:           KindPattern,
		Profile:        cFamilyProfile,
		CommentMarkers: []string{"//", "/*"},
		BlockOpen:      "/*",
	}
	langC = &Language{
		Name:           "c",
		Kind:           KindPattern,
		Profile:        cFamilyProfile,
		CommentMarkers: []string{"//", "/*"},
		BlockOpen:      "/*",
	}
	langCPP = &Language{
		Name:           "cpp",
		Kind:           KindPattern,
		Profile:        cFamilyProfile,
		CommentMarkers: []string{"//", "/*"},
		BlockOpen:      "/*",
	}
	langHTML = &Language{
		Name:           "html",
		Kind:           KindNone,
		CommentMarkers: []string{"<!--"},
		BlockOpen:      "<!--",
	}
	langCSS = &Language{
		Name:           "css",
		Kind:           KindNone,
		CommentMarkers: []string{"/*"},
		BlockOpen:      "/*",
	}
)

// languageTable maps recognized code extensions to their language.
var languageTable = map[string]*Language{
	".py":   langPython,
	".js":   langJavaScript,
	".jsx":  langJavaScript,
	".ts":   langJavaScript,
	".tsx":  langJavaScript,
	".php":  langPHP,
	".java": langJava,
	".c":    langC,
	".cpp":  langCPP,
	".html": langHTML,
	".css":  langCSS,
}

// DefaultExcludedDirs are tooling directories never descended into.
var DefaultExcludedDirs = []string{".git", "__pycache__", "node_modules", ".vscode", ".idea"}

// LookupLanguage resolves a file name to its language by extension.
func LookupLanguage(name string) (*Language, bool) {
	lang, ok := languageTable[strings.ToLower(filepath.Ext(name))]
	return lang, ok
}

// CodeExtensions returns the recognized extensions.
func CodeExtensions() []string {
	exts := make([]string, 0, len(languageTable))
	for ext := range languageTable {
		exts = append(exts, ext)
	}
	return exts
}

type lineKind int

const (
	lineBlank lineKind = iota
	lineComment
	lineCode
)

func (l *Language) classifyLine(line string) lineKind {
	stripped := strings.TrimSpace(line)
	if stripped == "" {
		return lineBlank
	}
	for _, marker := range l.CommentMarkers {
		if strings.HasPrefix(stripped, marker) {
			return lineComment
		}
	}
	if l.BlockOpen != "" && strings.Contains(stripped, l.BlockOpen) {
		return lineComment
	}
	return lineCode
}
