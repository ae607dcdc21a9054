package deb

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blakesmith/ar"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// treeEntry is one file or directory of an assembled package tree.
type treeEntry struct {
	rel  string // slash separated, relative to the tree root
	info os.FileInfo
	body []byte // regular files only
	link string // symlinks only
}

// WriteTree packs the package tree rooted at root into a .deb written to w,
// the same archive `dpkg-deb --build root` produces.
// root/DEBIAN/control is required. Other DEBIAN files keep their mode, and an
// md5sums file is generated unless the tree provides one.
// It returns the number of bytes written.
func WriteTree(fsys billy.Filesystem, root string, w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	control, data, err := readTree(fsys, root)
	if err != nil {
		return 0, err
	}

	// 1. Build Data Archive (data.tar.gz)
	// We must build this first to calculate MD5 sums of files for the control archive.
	dataBuf := new(bytes.Buffer)
	md5Map, err := buildDataArchive(dataBuf, data)
	if err != nil {
		return cw.n, fmt.Errorf("building data archive: %w", err)
	}

	// 2. Build Control Archive (control.tar.gz)
	controlBuf := new(bytes.Buffer)
	if err := buildControlArchive(controlBuf, control, md5Map); err != nil {
		return cw.n, fmt.Errorf("building control archive: %w", err)
	}

	// 3. Assemble the final AR archive
	arW := ar.NewWriter(cw)
	if err := arW.WriteGlobalHeader(); err != nil {
		return cw.n, fmt.Errorf("writing ar global header: %w", err)
	}
	// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html#FORMAT
	if err := addBufferToAr(arW, string(PkgDebianBinary), []byte("2.0\n")); err != nil {
		return cw.n, fmt.Errorf("writing %s: %w", PkgDebianBinary, err)
	}
	if err := addBufferToAr(arW, string(PkgControlTarGz), controlBuf.Bytes()); err != nil {
		return cw.n, fmt.Errorf("writing %s: %w", PkgControlTarGz, err)
	}
	if err := addBufferToAr(arW, string(PkgDataTarGz), dataBuf.Bytes()); err != nil {
		return cw.n, fmt.Errorf("writing %s: %w", PkgDataTarGz, err)
	}
	return cw.n, nil
}

// readTree walks root in lexical order and splits it into DEBIAN entries and payload entries.
func readTree(fsys billy.Filesystem, root string) (control, data []treeEntry, err error) {
	err = util.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		e := treeEntry{rel: rel, info: info}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			if e.link, err = fsys.Readlink(path); err != nil {
				return fmt.Errorf("reading link %s: %w", path, err)
			}
		case info.Mode().IsRegular():
			if e.body, err = util.ReadFile(fsys, path); err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
		}

		if rel == DebianDir || strings.HasPrefix(rel, DebianDir+"/") {
			if info.Mode().IsRegular() {
				control = append(control, e)
			}
			return nil
		}
		data = append(data, e)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return control, data, nil
}

// buildDataArchive creates the data.tar.gz containing the package files.
// It returns a map of file paths to MD5 checksums.
func buildDataArchive(w io.Writer, entries []treeEntry) (map[string]string, error) {
	gw := gzip.NewWriter(w)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()

	if err := tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeDir,
		Name:     "./",
		Mode:     0755,
		ModTime:  time.Now(),
	}); err != nil {
		return nil, err
	}

	md5Map := make(map[string]string)
	for _, e := range entries {
		header := &tar.Header{
			Name:    "./" + e.rel,
			Mode:    int64(e.info.Mode().Perm()),
			ModTime: e.info.ModTime(),
		}
		if header.ModTime.IsZero() {
			header.ModTime = time.Now()
		}

		switch {
		case e.info.IsDir():
			header.Typeflag = tar.TypeDir
			header.Name += "/"
		case e.link != "":
			header.Typeflag = tar.TypeSymlink
			header.Linkname = e.link
		default:
			header.Typeflag = tar.TypeReg
			header.Size = int64(len(e.body))
			hash := md5.Sum(e.body)
			md5Map[e.rel] = hex.EncodeToString(hash[:])
		}

		if err := tw.WriteHeader(header); err != nil {
			return nil, err
		}
		if header.Typeflag == tar.TypeReg {
			if _, err := tw.Write(e.body); err != nil {
				return nil, err
			}
		}
	}
	return md5Map, nil
}

// buildControlArchive creates the control.tar.gz from the DEBIAN entries.
func buildControlArchive(w io.Writer, entries []treeEntry, md5Map map[string]string) error {
	gw := gzip.NewWriter(w)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()

	writeEntry := func(name string, content []byte, mode int64) error {
		header := &tar.Header{
			Name:    "./" + name,
			Size:    int64(len(content)),
			Mode:    mode,
			ModTime: time.Now(),
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		_, err := tw.Write(content)
		return err
	}

	files := make(map[string]treeEntry, len(entries))
	for _, e := range entries {
		files[strings.TrimPrefix(e.rel, DebianDir+"/")] = e
	}

	control, ok := files[string(FileControl)]
	if !ok {
		return fmt.Errorf("%s/%s not found", DebianDir, FileControl)
	}
	if err := writeEntry(string(FileControl), control.body, 0644); err != nil {
		return fmt.Errorf("writing control: %w", err)
	}

	if _, ok := files[string(FileMd5sums)]; !ok {
		if err := writeEntry(string(FileMd5sums), []byte(generateMd5sums(md5Map)), 0644); err != nil {
			return fmt.Errorf("writing md5sums: %w", err)
		}
	}

	var names []string
	for name := range files {
		if name != string(FileControl) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		e := files[name]
		if err := writeEntry(name, e.body, int64(e.info.Mode().Perm())); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

func generateMd5sums(md5Map map[string]string) string {
	var paths []string
	for path := range md5Map {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, path := range paths {
		fmt.Fprintf(&b, "%s  %s\n", md5Map[path], path)
	}
	return b.String()
}
