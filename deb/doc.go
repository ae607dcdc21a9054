// Package deb provides the Debian-format building blocks of a package build.
//
// # Design Philosophy
//
// Everything here is a pure transformation or works on streams (io.Reader/io.Writer)
// and billy filesystems, so the same code serves the host filesystem and in-memory
// trees used by tests. Sequencing belongs to the build package; this package only
// knows the formats.
//
// # Features
//
// Control metadata:
//   - Title-case field names ("pre-depends" becomes "Pre-Depends").
//   - Render one control line per field and drop orchestration-only fields by name.
//
// Changelog:
//   - Render changelog.Debian text from release entries.
//   - Gzip and gunzip helpers for changelog.Debian.gz.
//
// Archives:
//   - Pack a package tree (DEBIAN/ plus payload) into a .deb without dpkg-deb.
//   - Read a .deb back into its control fields, scripts and payload files.
//   - Sign a built .deb with a detached, ASCII-armored OpenPGP signature.
package deb
