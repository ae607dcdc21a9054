package build

import (
	"path/filepath"

	"github.com/etnz/smartdeb/deb"
	"github.com/etnz/smartdeb/errors"
	"github.com/etnz/smartdeb/manifest"
	"github.com/go-git/go-billy/v5/util"
)

const (
	opTree      = "build.tree"
	opControl   = "build.control"
	opChangelog = "build.changelog"
	opPlace     = "build.place"
)

// writeControl renders the control fields into DEBIAN/control.
func (b *Builder) writeControl(w *treeWriter, cfg *manifest.Config) error {
	lines := deb.FilterControl(deb.ControlLines(cfg.Control))
	path := filepath.Join(cfg.Root(), deb.DebianDir, string(deb.FileControl))
	if err := w.writeFile(path, []byte(deb.RenderControl(lines)), 0644); err != nil {
		return errors.Wrap(errors.Write, opControl, path, err, "writing control file")
	}
	b.log.Debug("wrote control file", "path", path, "fields", len(lines)-1)
	b.emit(EventControlWritten{Path: path, Fields: len(lines) - 1})
	return nil
}

// writeChangelog writes usr/share/doc/<package>/changelog.Debian.gz.
// The plain changelog.Debian only exists while it is being compressed.
// A compression failure is logged and does not fail the build; the partial
// changelog.Debian.gz is removed with the plain file.
func (b *Builder) writeChangelog(w *treeWriter, cfg *manifest.Config) error {
	if len(cfg.Changelog) == 0 {
		return nil
	}

	dir := filepath.Join(cfg.Root(), cfg.ChangelogDir())
	plain := filepath.Join(dir, deb.ChangelogFile)
	compressed := filepath.Join(dir, deb.ChangelogGzFile)

	if err := w.mkdirAll(dir); err != nil {
		return errors.Wrap(errors.Write, opChangelog, dir, err, "creating directory")
	}
	text := deb.Changelog(cfg.Package, cfg.Maintainer, cfg.Changelog)
	if err := w.writeFile(plain, []byte(text), 0644); err != nil {
		return errors.Wrap(errors.Write, opChangelog, plain, err, "writing changelog")
	}
	compressErr := w.compress(plain, compressed)
	defer func() {
		leftovers := []string{plain}
		if compressErr != nil {
			leftovers = append(leftovers, compressed)
		}
		for _, path := range leftovers {
			if !w.exists(path) {
				continue
			}
			if err := w.remove(path); err != nil {
				b.log.Error("cannot remove changelog", "path", path, "err", err)
			}
		}
	}()

	if compressErr != nil {
		b.log.Error("cannot compress changelog", "path", compressed, "err", compressErr)
		return nil
	}
	b.log.Debug("wrote changelog", "path", compressed, "entries", len(cfg.Changelog))
	b.emit(EventChangelogWritten{Path: compressed, Entries: len(cfg.Changelog)})
	return nil
}

// placeFiles copies every input file to <root>/<target>/<basename>.
// Files sharing a basename overwrite each other: the last one wins.
func (b *Builder) placeFiles(w *treeWriter, cfg *manifest.Config, files []InputFile) error {
	dir := filepath.Join(cfg.Root(), cfg.Target)
	if err := w.mkdirAll(dir); err != nil {
		return errors.Wrap(errors.Write, opPlace, dir, err, "creating target directory")
	}

	placed := make(map[string]string, len(files))
	for _, f := range files {
		dst := filepath.Join(dir, filepath.Base(f.Path))
		info, err := w.fs.Stat(f.Path)
		if err != nil {
			return errors.Wrap(errors.Write, opPlace, f.Path, err, "reading input file")
		}
		content, err := util.ReadFile(w.fs, f.Path)
		if err != nil {
			return errors.Wrap(errors.Write, opPlace, f.Path, err, "reading input file")
		}
		if err := w.writeFile(dst, content, info.Mode().Perm()); err != nil {
			return errors.Wrap(errors.Write, opPlace, dst, err, "copying %s", f.Path)
		}

		prev, overwritten := placed[dst]
		if overwritten {
			b.log.Warn("input file overwritten", "path", dst, "previous", prev, "by", f.Path)
		}
		placed[dst] = f.Path
		b.emit(EventFilePlaced{Source: f.Path, Destination: dst, Overwritten: overwritten})
	}
	return nil
}
