package content

import (
	"regexp"
	"strings"
)

// placeholder matches {{name}} and {name}. The double form is tried first so
// {{name}} is replaced as a whole.
var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}|\{\s*([A-Za-z0-9_.-]+)\s*\}`)

// Compile fills the template's placeholders from vars. A placeholder whose
// variable is missing or blank is left in the text unchanged.
func Compile(template string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		sub := placeholder.FindStringSubmatch(m)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		v, ok := vars[name]
		if !ok || strings.TrimSpace(v) == "" {
			return m
		}
		return v
	})
}

// Variables lists the distinct placeholder names of a template in order of
// first appearance.
func Variables(template string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, sub := range placeholder.FindAllStringSubmatch(template, -1) {
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
