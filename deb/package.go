package deb

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/blakesmith/ar"
)

// Package is the content of a built .deb, as read back by ReadPackage.
type Package struct {
	// Control is the raw content of the control file.
	Control string
	// Fields are the parsed control fields, in file order.
	Fields []Field
	// Scripts holds the maintainer scripts found in the control archive, by name.
	Scripts map[ControlFile]string
	// ControlFiles holds every other file of the control archive (md5sums, conffiles...).
	ControlFiles map[string]string
	// Files is the payload, regular files only.
	Files []File
}

// File represents a single payload file of a package.
type File struct {
	// Path is the absolute path where the file is installed (e.g., "/usr/bin/app").
	Path string
	// Mode is the file permission mode.
	Mode int64
	// Body is the file content.
	Body string
	// ModTime is the modification time stored in the archive.
	ModTime time.Time
}

// Get returns the value of a control field, or "" if the package does not declare it.
func (p *Package) Get(field ControlField) string {
	for _, f := range p.Fields {
		if strings.EqualFold(f.Name, string(field)) {
			return f.Value
		}
	}
	return ""
}

// StandardFilename returns the canonical filename for the package.
// Format: {Package}_{Version}_{Architecture}.deb
//
// Reference: https://www.debian.org/doc/manuals/debian-faq/ch-pkg_basics.en.html#s-pkgname
func (p *Package) StandardFilename() string {
	return fmt.Sprintf("%s_%s_%s.deb", p.Get(FieldPackage), p.Get(FieldVersion), p.Get(FieldArchitecture))
}

// ReadPackage parses a .deb file.
func ReadPackage(r io.Reader) (*Package, error) {
	pkg := &Package{
		Scripts:      make(map[ControlFile]string),
		ControlFiles: make(map[string]string),
	}

	arR := ar.NewReader(r)
	for {
		header, err := arR.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ar header: %w", err)
		}

		switch {
		case strings.HasPrefix(header.Name, "control.tar"):
			tr, closer, err := openTar(arR, header.Name)
			if err != nil {
				return nil, fmt.Errorf("opening %s: %w", header.Name, err)
			}
			err = readControlArchive(tr, pkg)
			closer()
			if err != nil {
				return nil, err
			}
		case strings.HasPrefix(header.Name, "data.tar"):
			tr, closer, err := openTar(arR, header.Name)
			if err != nil {
				return nil, fmt.Errorf("opening %s: %w", header.Name, err)
			}
			err = readDataArchive(tr, pkg)
			closer()
			if err != nil {
				return nil, err
			}
		}
	}

	if pkg.Control == "" {
		return nil, fmt.Errorf("control file not found")
	}
	return pkg, nil
}

// openTar returns a tar reader over an ar member, decompressing it when its name ends in .gz.
func openTar(r io.Reader, name string) (*tar.Reader, func(), error) {
	if !strings.HasSuffix(name, ".gz") {
		return tar.NewReader(r), func() {}, nil
	}
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	return tar.NewReader(gzr), func() { gzr.Close() }, nil
}

func readControlArchive(tr *tar.Reader, pkg *Package) error {
	for {
		th, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading control tar header: %w", err)
		}
		if th.Typeflag != tar.TypeReg {
			continue
		}

		name := filepath.Base(th.Name)
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		content := buf.String()

		switch ControlFile(name) {
		case FileControl:
			fields, err := parseControlFile(content)
			if err != nil {
				return fmt.Errorf("parsing control file: %w", err)
			}
			pkg.Control = content
			pkg.Fields = fields
		case FilePreinst, FilePostinst, FilePrerm, FilePostrm:
			pkg.Scripts[ControlFile(name)] = content
		default:
			pkg.ControlFiles[name] = content
		}
	}
}

func readDataArchive(tr *tar.Reader, pkg *Package) error {
	for {
		th, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading data tar header: %w", err)
		}
		if th.Typeflag != tar.TypeReg {
			continue
		}

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return fmt.Errorf("reading file %s: %w", th.Name, err)
		}

		destPath := "/" + strings.TrimPrefix(th.Name, "./")
		destPath = strings.ReplaceAll(destPath, "//", "/")

		pkg.Files = append(pkg.Files, File{
			Path:    destPath,
			Mode:    th.Mode,
			Body:    buf.String(),
			ModTime: th.ModTime,
		})
	}
}
