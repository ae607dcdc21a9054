package deb

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
	"time"
)

// ChangelogEntry is one release of a package changelog.
type ChangelogEntry struct {
	Version      string
	Distribution string
	Urgency      string
	Changes      []string
	Date         time.Time
}

// ChangelogDateFormat is the layout of the maintainer trailer's timestamp.
const ChangelogDateFormat = time.RFC1123Z

// Changelog renders entries, in order, as changelog.Debian text:
//
//	<pkg> (<version>) <distribution>; urgency=<urgency>
//
//		* <change>
//
//	-- <maintainer> <date>
//
// Blocks are separated by a single blank line. It returns "" when there are no entries.
func Changelog(pkg, maintainer string, entries []ChangelogEntry) string {
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		var b strings.Builder
		fmt.Fprintf(&b, "%s (%s) %s; urgency=%s\n\n", pkg, e.Version, e.Distribution, e.Urgency)
		for _, c := range e.Changes {
			fmt.Fprintf(&b, "\t * %s\n", c)
		}
		fmt.Fprintf(&b, "\n-- %s %s\n", maintainer, e.Date.Format(ChangelogDateFormat))
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n")
}

// Gzip compresses everything read from r into w.
func Gzip(w io.Writer, r io.Reader) error {
	gw := gzip.NewWriter(w)
	if _, err := io.Copy(gw, r); err != nil {
		gw.Close()
		return fmt.Errorf("compressing: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("flushing gzip stream: %w", err)
	}
	return nil
}

// Gunzip returns the decompressed content of a gzip stream.
func Gunzip(r io.Reader) ([]byte, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gr.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, gr); err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return buf.Bytes(), nil
}
