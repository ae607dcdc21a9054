package deb

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Field is one entry of a control file, in the order it was declared.
type Field struct {
	Name  string
	Value string
}

// controlTerminator closes the list of control lines. It contributes the
// final newline of the control file once RenderControl trims it.
const controlTerminator = " "

// TitleCase capitalizes the first letter of every word in a field name.
// Hyphens and underscores separate words and are kept as is:
// "pre-depends" becomes "Pre-Depends".
func TitleCase(name string) string {
	// A Caser is stateful and must not be shared between goroutines.
	caser := cases.Title(language.Und, cases.NoLower)

	var b strings.Builder
	start := 0
	for i, r := range name {
		if r == '-' || r == '_' || r == ' ' {
			b.WriteString(caser.String(name[start:i]))
			b.WriteRune(r)
			start = i + 1
		}
	}
	b.WriteString(caser.String(name[start:]))
	return b.String()
}

// ControlLines renders one "<Name>: <value>" line per field, followed by the terminator line.
// Orchestration fields are rendered too; see FilterControl.
func ControlLines(fields []Field) []string {
	lines := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("%s: %s", TitleCase(f.Name), f.Value))
	}
	return append(lines, controlTerminator)
}

// FilterControl removes the lines of orchestration fields.
// Lines are matched on their field name only, never on their value.
func FilterControl(lines []string) []string {
	var kept []string
	for _, line := range lines {
		name, _, found := strings.Cut(line, ":")
		if found && IsOrchestration(name) {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

// RenderControl joins control lines into the control file content.
// The last character, the terminator's padding, is dropped so the file ends
// with a single newline.
func RenderControl(lines []string) string {
	joined := strings.Join(lines, "\n")
	if joined == "" {
		return ""
	}
	return joined[:len(joined)-1]
}

// GenerateControl is RenderControl(FilterControl(ControlLines(fields))).
func GenerateControl(fields []Field) string {
	return RenderControl(FilterControl(ControlLines(fields)))
}
