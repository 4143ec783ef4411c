// Package gateway resolves how to reach a registered server (remote URL,
// stdio package or local source), opens bounded MCP sessions, and runs
// tool invocation and tool extraction over them.
package gateway

import (
	"os"
	"regexp"
	"strings"
)

// placeholderPattern matches ${NAME} and ${input:NAME} placeholders.
var placeholderPattern = regexp.MustCompile(`\$\{(?:input:)?([^}]+)\}`)

// ExpandString substitutes environment values into a configuration string.
// Supported forms are an "ENV:NAME" prefix, "${NAME}" and "${input:NAME}".
// Unset variables leave the original text in place so the caller can see
// what was expected.
func ExpandString(s string) string {
	if rest, ok := strings.CutPrefix(s, "ENV:"); ok {
		if value, ok := os.LookupEnv(rest); ok {
			return value
		}
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}

// ExpandMap expands every value of a string map. Keys are left untouched.
func ExpandMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return m
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = ExpandString(v)
	}
	return out
}
