package runner

import "strings"

// Render personalizes a template by replacing {{column}} placeholders
// with the recipient's CSV fields. Placeholders without a matching column
// are left as-is.
func Render(template string, fields map[string]string) string {
	out := template
	for k, v := range fields {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}
