package build

import (
	stderrors "errors"
	"path/filepath"
	"strings"

	"github.com/etnz/smartdeb/deb"
	"github.com/etnz/smartdeb/errors"
	"github.com/etnz/smartdeb/manifest"
)

const opScript = "build.script"

// scriptMode is the permission of installed maintainer scripts.
const scriptMode = 0755

// scriptContent terminates the lines with an empty line and joins them.
func scriptContent(lines []string) string {
	return strings.Join(append(append([]string(nil), lines...), ""), "\n")
}

// installScripts writes every maintainer script with lines to DEBIAN/<name>.
// All scripts are attempted; the failures are reported together.
func (b *Builder) installScripts(w *treeWriter, cfg *manifest.Config) error {
	var errs []error
	for _, name := range deb.MaintainerScripts {
		lines := cfg.Scripts[name]
		if len(lines) == 0 {
			continue
		}
		path := filepath.Join(cfg.Root(), deb.DebianDir, string(name))
		if err := w.writeFile(path, []byte(scriptContent(lines)), scriptMode); err != nil {
			b.log.Error("cannot install script", "script", name, "path", path, "err", err)
			errs = append(errs, errors.Wrap(errors.Write, opScript, path, err, "writing %s", name))
			continue
		}
		b.log.Debug("installed script", "script", name, "lines", len(lines))
		b.emit(EventScriptWritten{Path: path, Lines: len(lines)})
	}
	return stderrors.Join(errs...)
}
