package deb

import "strings"

// ControlField represents a field name in a Debian control file.
type ControlField string

const (
	FieldPackage       ControlField = "Package"
	FieldVersion       ControlField = "Version"
	FieldArchitecture  ControlField = "Architecture"
	FieldMaintainer    ControlField = "Maintainer"
	FieldDescription   ControlField = "Description"
	FieldInstalledSize ControlField = "Installed-Size"
)

// Orchestration fields drive the build and are never written to the control file.
const (
	FieldTarget    ControlField = "Target"
	FieldOut       ControlField = "Out"
	FieldVerbose   ControlField = "Verbose"
	FieldChangelog ControlField = "Changelog"
	FieldPreinst   ControlField = "Preinst"
	FieldPostinst  ControlField = "Postinst"
	FieldPrerm     ControlField = "Prerm"
	FieldPostrm    ControlField = "Postrm"
)

var orchestrationFields = []ControlField{
	FieldOut,
	FieldTarget,
	FieldVerbose,
	FieldChangelog,
	FieldPreinst,
	FieldPostinst,
	FieldPrerm,
	FieldPostrm,
}

// IsOrchestration reports whether name designates an orchestration-only field.
// The match ignores case and leading underscores, so "_out", "OUT" and "Out"
// are all orchestration fields.
func IsOrchestration(name string) bool {
	name = strings.TrimLeft(strings.TrimSpace(name), "_")
	for _, f := range orchestrationFields {
		if strings.EqualFold(name, string(f)) {
			return true
		}
	}
	return false
}

// ControlFile represents a standard file found in the DEBIAN directory
// of a package tree, and in the control.tar.gz member of a .deb.
type ControlFile string

const (
	FileControl  ControlFile = "control"
	FileMd5sums  ControlFile = "md5sums"
	FilePreinst  ControlFile = "preinst"
	FilePostinst ControlFile = "postinst"
	FilePrerm    ControlFile = "prerm"
	FilePostrm   ControlFile = "postrm"
)

// MaintainerScripts lists the scripts installed from a descriptor, in installation order.
var MaintainerScripts = []ControlFile{FilePreinst, FilePostinst, FilePrerm, FilePostrm}

// PackageFile represents a standard file found in the .deb archive (ar format).
type PackageFile string

const (
	PkgDebianBinary PackageFile = "debian-binary"
	PkgControlTarGz PackageFile = "control.tar.gz"
	PkgDataTarGz    PackageFile = "data.tar.gz"
)

// Package tree layout.
const (
	// DebianDir holds the control file and maintainer scripts.
	DebianDir = "DEBIAN"
	// DocDir is the parent of the per-package documentation directory.
	DocDir = "usr/share/doc"
	// ChangelogFile is the uncompressed changelog name, only present during assembly.
	ChangelogFile = "changelog.Debian"
	// ChangelogGzFile is the changelog name shipped in the package.
	ChangelogGzFile = ChangelogFile + ".gz"
)
