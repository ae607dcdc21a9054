package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/etnz/smartdeb/deb"
	"github.com/go-git/go-billy/v5"
)

// ArchiveResult is the outcome of an archiver run.
type ArchiveResult struct {
	// Stdout and Stderr hold what the archiver printed.
	Stdout string
	Stderr string
	// ExitCode is the archiver process exit status, 0 for in-process archivers.
	ExitCode int
	// Package is the path of the built archive.
	Package string
}

// Archiver packs an assembled package tree into a .deb.
// It returns the result even when it fails, so its output can be reported.
type Archiver interface {
	Archive(ctx context.Context, fsys billy.Filesystem, dir string) (*ArchiveResult, error)
}

// DpkgDeb runs `dpkg-deb --build <dir>`, producing <dir>.deb.
// dpkg-deb reads the tree from the host, so fsys must be the host filesystem.
type DpkgDeb struct {
	// Binary is the dpkg-deb executable, looked up in PATH. Defaults to "dpkg-deb".
	Binary string
}

func (a DpkgDeb) Archive(ctx context.Context, _ billy.Filesystem, dir string) (*ArchiveResult, error) {
	bin := a.Binary
	if bin == "" {
		bin = "dpkg-deb"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "--build", dir)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	res := &ArchiveResult{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Package: dir + ".deb",
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return res, fmt.Errorf("running %s --build %s: %w", bin, dir, err)
	}
	return res, nil
}

// Builtin packs the tree in process with deb.WriteTree, producing <dir>.deb
// on the same filesystem. It needs no external tool.
type Builtin struct{}

func (Builtin) Archive(ctx context.Context, fsys billy.Filesystem, dir string) (res *ArchiveResult, err error) {
	res = &ArchiveResult{Package: dir + ".deb"}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	f, err := fsys.OpenFile(res.Package, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return res, fmt.Errorf("creating %s: %w", res.Package, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", res.Package, cerr)
		}
	}()

	n, err := deb.WriteTree(fsys, dir, f)
	if err != nil {
		return res, fmt.Errorf("packing %s: %w", dir, err)
	}
	res.Stdout = fmt.Sprintf("building package into '%s' (%d bytes).\n", res.Package, n)
	return res, nil
}
