package deb

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blakesmith/ar"
)

// countingWriter wraps an io.Writer and counts the bytes written.
// It is typically used to calculate the size of a file or archive entry
// as it is being written.
type countingWriter struct {
	w io.Writer
	n int64
}

// Write writes p to the underlying io.Writer and increments the byte count.
func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// addBufferToAr writes a named byte slice as a file entry to the AR archive.
// It constructs the AR header with mode 0644 and the current timestamp.
func addBufferToAr(w *ar.Writer, name string, body []byte) error {
	header := &ar.Header{
		Name:    name,
		Size:    int64(len(body)),
		Mode:    0644,
		ModTime: time.Now(),
	}
	if err := w.WriteHeader(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// parseControlFile parses the content of a Debian control file into its fields,
// in file order. Folded (multiline) values keep their continuation lines.
func parseControlFile(content string) ([]Field, error) {
	var fields []Field
	var current *Field
	var value strings.Builder

	flush := func() {
		if current != nil {
			current.Value = strings.TrimSpace(value.String())
			fields = append(fields, *current)
			current = nil
		}
	}

	for i, line := range strings.Split(content, "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			continue
		case strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t"):
			if current == nil {
				return nil, fmt.Errorf("line %d: continuation line without a field", i+1)
			}
			value.WriteString("\n" + line)
		default:
			name, v, found := strings.Cut(line, ":")
			if !found {
				return nil, fmt.Errorf("line %d: missing ':' in %q", i+1, line)
			}
			flush()
			current = &Field{Name: strings.TrimSpace(name)}
			value.Reset()
			value.WriteString(strings.TrimSpace(v))
		}
	}
	flush()
	return fields, nil
}
