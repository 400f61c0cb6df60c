package features

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/RishiKendai/codenest/internal/models"
)

const (
	minLiteralRunes = 3
	maxLiteralRunes = 50
)

type taggedPattern struct {
	tag string
	re  *regexp.Regexp
}

// PatternProfile holds the regular-expression heuristics of one language family.
// Function patterns are independent: a declaration matched by two patterns is
// counted twice.
type PatternProfile struct {
	Name        string
	Functions   []*regexp.Regexp
	Imports     []*regexp.Regexp
	ControlFlow []taggedPattern
	Variables   []*regexp.Regexp
	Strings     []*regexp.Regexp
	Keywords    []string

	keywordRes []*regexp.Regexp
}

func newPatternProfile(p PatternProfile) *PatternProfile {
	p.keywordRes = make([]*regexp.Regexp, len(p.Keywords))
	for i, kw := range p.Keywords {
		p.keywordRes[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return &p
}

func mustCompileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

var quotedStrings = mustCompileAll(
	`"((?:[^"\\\n]|\\.)*?)"`,
	`'((?:[^'\\\n]|\\.)*?)'`,
)

var javascriptProfile = newPatternProfile(PatternProfile{
	Name: "javascript",
	Functions: mustCompileAll(
		`function\s+(\w+)`,
		`const\s+(\w+)\s*=\s*\([^)]*\)\s*=>`,
		`let\s+(\w+)\s*=\s*\([^)]*\)\s*=>`,
		`var\s+(\w+)\s*=\s*function`,
		`(\w+)\s*:\s*function\s*\(`,
		`async\s+function\s+(\w+)`,
		`(\w+)\s*\([^)]*\)\s*{`,
	),
	Imports: mustCompileAll(
		`import\s+.*\s+from\s+['"]([^'"]+)['"]`,
		`import\s+['"]([^'"]+)['"]`,
		`require\(['"]([^'"]+)['"]\)`,
		`import\s*\(\s*['"]([^'"]+)['"]\s*\)`,
	),
	ControlFlow: []taggedPattern{
		{"if", regexp.MustCompile(`\bif\s*\(`)},
		{"for", regexp.MustCompile(`\bfor\s*\(`)},
		{"while", regexp.MustCompile(`\bwhile\s*\(`)},
		{"switch", regexp.MustCompile(`\bswitch\s*\(`)},
		{"try", regexp.MustCompile(`\btry\s*{`)},
		{"function", regexp.MustCompile(`\bfunction\b`)},
		{"class", regexp.MustCompile(`\bclass\s+\w+`)},
	},
	Variables: mustCompileAll(
		`\bvar\s+(\w+)`,
		`\blet\s+(\w+)`,
		`\bconst\s+(\w+)`,
	),
	Strings: append(append([]*regexp.Regexp{}, quotedStrings...),
		regexp.MustCompile("`((?:[^`\\\\]|\\\\.)*?)`"),
	),
	Keywords: []string{"function", "const", "let", "var", "if", "else", "for", "while", "class", "import", "export", "async", "await"},
})

var cFamilyProfile = newPatternProfile(PatternProfile{
	Name: "cfamily",
	Functions: mustCompileAll(
		`\b(?:void|int|long|short|float|double|char|bool|boolean|byte|String|auto|unsigned|[A-Z]\w*)(?:<[^>]*>)?(?:\[\])*[\s*&]+(\w+)\s*\([^;{)]*\)\s*(?:const\s*)?(?:throws\s+[\w., ]+)?\{`,
		`(\w+)\s*\([^)]*\)\s*{`,
	),
	Imports: mustCompileAll(
		`#\s*include\s*[<"]([^>"]+)[>"]`,
		`\bimport\s+(?:static\s+)?([\w.]+?)(?:\.\*)?\s*;`,
		`\busing\s+namespace\s+(\w+)\s*;`,
	),
	ControlFlow: []taggedPattern{
		{"if", regexp.MustCompile(`\bif\s*\(`)},
		{"for", regexp.MustCompile(`\bfor\s*\(`)},
		{"while", regexp.MustCompile(`\bwhile\s*\(`)},
		{"switch", regexp.MustCompile(`\bswitch\s*\(`)},
		{"try", regexp.MustCompile(`\btry\s*{`)},
		{"class", regexp.MustCompile(`\b(?:class|struct|interface|enum)\s+\w+`)},
	},
	Variables: mustCompileAll(
		`\b(?:int|long|short|float|double|char|bool|boolean|byte|String|auto|var|unsigned|size_t)(?:\[\])?\s+\*?(\w+)\s*(?:=|;|,|\[)`,
	),
	Strings:  quotedStrings,
	Keywords: []string{"int", "void", "return", "if", "else", "for", "while", "switch", "case", "class", "struct", "public", "private", "static", "new", "include", "import", "try", "catch"},
})

var phpProfile = newPatternProfile(PatternProfile{
	Name: "php",
	Functions: mustCompileAll(
		`function\s+(\w+)\s*\(`,
		`\$(\w+)\s*=\s*function\s*\(`,
		`\$(\w+)\s*=\s*fn\s*\(`,
		`(\w+)\s*\([^)]*\)\s*{`,
	),
	Imports: mustCompileAll(
		`\b(?:require|include)(?:_once)?\s*\(?\s*['"]([^'"]+)['"]`,
		`(?m)^\s*use\s+([\w\\]+)`,
	),
	ControlFlow: []taggedPattern{
		{"if", regexp.MustCompile(`\bif\s*\(`)},
		{"for", regexp.MustCompile(`\bfor(?:each)?\s*\(`)},
		{"while", regexp.MustCompile(`\bwhile\s*\(`)},
		{"switch", regexp.MustCompile(`\bswitch\s*\(`)},
		{"try", regexp.MustCompile(`\btry\s*{`)},
		{"function", regexp.MustCompile(`\bfunction\b`)},
		{"class", regexp.MustCompile(`\bclass\s+\w+`)},
	},
	Variables: mustCompileAll(
		`\$(\w+)\s*=[^=>]`,
	),
	Strings:  quotedStrings,
	Keywords: []string{"function", "class", "if", "else", "elseif", "foreach", "for", "while", "echo", "return", "require", "include", "use", "namespace", "new"},
})

// Extract applies the profile to one file.
func (p *PatternProfile) Extract(source []byte) (*models.FileFeatures, error) {
	code := string(source)
	ff := &models.FileFeatures{}

	for _, re := range p.Functions {
		for _, m := range re.FindAllStringSubmatch(code, -1) {
			ff.FunctionsCount++
			if m[1] != "" {
				ff.FunctionNames = append(ff.FunctionNames, m[1])
			}
		}
	}

	for _, re := range p.Imports {
		for _, m := range re.FindAllStringSubmatch(code, -1) {
			if pkg, ok := packageName(m[1]); ok {
				ff.Imports = append(ff.Imports, pkg)
			}
		}
	}

	for _, cp := range p.ControlFlow {
		n := len(cp.re.FindAllStringIndex(code, -1))
		for i := 0; i < n; i++ {
			ff.ControlFlow = append(ff.ControlFlow, cp.tag)
		}
		if cp.tag == "class" {
			ff.ClassesCount += n
		}
	}

	for _, re := range p.Variables {
		for _, m := range re.FindAllStringSubmatch(code, -1) {
			ff.VariableNames = append(ff.VariableNames, m[1])
		}
	}

	for _, re := range p.Strings {
		for _, m := range re.FindAllStringSubmatch(code, -1) {
			if utf8.RuneCountInString(m[1]) >= minLiteralRunes {
				ff.StringLiterals = append(ff.StringLiterals, truncateRunes(m[1], maxLiteralRunes))
			}
		}
	}

	ff.Keywords = countKeywords(code, p.Keywords, p.keywordRes)
	return ff, nil
}

// packageName keeps the first path segment of a module specifier and rejects
// relative specifiers.
func packageName(spec string) (string, bool) {
	pkg, _, _ := strings.Cut(spec, "/")
	if pkg == "" || strings.HasPrefix(pkg, ".") {
		return "", false
	}
	return pkg, true
}

func countKeywords(code string, keywords []string, res []*regexp.Regexp) []string {
	var out []string
	for i, kw := range keywords {
		n := len(res[i].FindAllStringIndex(code, -1))
		for j := 0; j < n; j++ {
			out = append(out, kw)
		}
	}
	return out
}
