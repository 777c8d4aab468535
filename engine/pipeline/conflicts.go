package pipeline

import (
	"golang.org/x/exp/slices"
)

// Storage and precision qualifiers that legitimately appear before a global
// declaration. They are never rename candidates and must not displace the
// identifier tracked before a '(' or '='.
var glslQualifiers = []string{
	"attribute", "const", "highp", "lowp", "mediump", "uniform", "varying",
}

// Predefined macros the preprocessor owns. Renaming these would break the
// surrounding generated shader.
var glslBuiltInMacros = []string{
	"__LINE__", "__FILE__", "__VERSION__", "GL_core_profile", "GL_compatibility_profile",
}

func isQualifier(identifier string) bool {
	return slices.Contains(glslQualifiers, identifier)
}

func isBuiltInMacro(identifier string) bool {
	return slices.Contains(glslBuiltInMacros, identifier)
}

func isIdentifierStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentifierChar(c byte) bool {
	return isIdentifierStart(c) || (c >= '0' && c <= '9')
}

/**
 * @brief Scans a fragment shader source for global-scope identifiers that
 * would collide when several independently authored sources are merged into
 * one compilation unit: macro names, and the heuristic function (identifier
 * before '(') and variable (identifier before '=') definitions. Identifiers
 * inside a brace block, comments and non-define preprocessor lines are
 * skipped. The result is ordered longest first so substring candidates are
 * substituted after the names containing them.
 */
func GlobalConflicts(source string) []string {
	lastIdentifier := ""
	var conflicts []string
	scope := 0
	for i := 0; i < len(source); i++ {
		// Inside a block only the braces matter.
		if scope > 0 {
			if source[i] == '{' {
				scope++
			} else if source[i] == '}' {
				scope--
			}
			continue
		}

		parseIdentifier := func() string {
			start := i
			for ; i < len(source); i++ {
				if !isIdentifierChar(source[i]) {
					break
				}
			}
			end := i
			i-- // unwind so the outer loop advances past the last character
			return source[start:end]
		}

		switch {
		case isIdentifierStart(source[i]):
			identifier := parseIdentifier()
			if isQualifier(identifier) {
				continue
			}
			if isBuiltInMacro(identifier) {
				continue
			}
			lastIdentifier = identifier

		case source[i] == '#':
			skipPreprocessorLine := func() {
				continuedLine := false
				for ; i < len(source); i++ {
					if source[i] == '\n' {
						if continuedLine {
							continuedLine = false
						} else {
							break
						}
					} else if source[i] == '\\' {
						continuedLine = true
					}
				}
			}
			i++
			if parseIdentifier() == "define" {
				i++
				for i < len(source) && source[i] == ' ' {
					i++
				}
				if i < len(source) {
					conflicts = append(conflicts, parseIdentifier())
				}
			}
			skipPreprocessorLine()

		case source[i] == '{':
			scope++

		case source[i] == '(':
			// A layout specifier is not a function definition.
			if lastIdentifier == "layout" {
				continue
			}
			conflicts = append(conflicts, lastIdentifier)

		case source[i] == '=':
			conflicts = append(conflicts, lastIdentifier)
			i++
			for ; i < len(source); i++ {
				if source[i] == ';' {
					break
				}
			}

		case source[i] == '/':
			if i+1 >= len(source) {
				continue
			}
			if source[i+1] == '/' {
				for ; i < len(source); i++ {
					if source[i] == '\n' {
						break
					}
				}
			} else if source[i+1] == '*' {
				// Step past the opener, then look for the closing pair.
				i += 2
				for ; i < len(source); i++ {
					if source[i] == '/' && source[i-1] == '*' {
						break
					}
				}
			}
		}
	}

	// Longest first: a short name that is a substring of a longer one must
	// not be substituted before the longer one is taken off the board.
	slices.SortStableFunc(conflicts, func(a, b string) int {
		return len(b) - len(a)
	})
	return conflicts
}
