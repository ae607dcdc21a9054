package build

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/etnz/smartdeb/deb"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// hostFS is the native filesystem. Unlike osfs.New it resolves relative
// paths against the working directory and supports Chmod.
type hostFS struct {
	*osfs.ChrootOS
}

// HostFS returns the native filesystem.
func HostFS() billy.Filesystem {
	return hostFS{ChrootOS: osfs.Default}
}

func (hostFS) Chroot(path string) (billy.Filesystem, error) {
	return chroot.New(osfs.Default, path), nil
}

func (hostFS) Root() string { return "" }

func (hostFS) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(name, mode)
}

type chmoder interface {
	Chmod(name string, mode os.FileMode) error
}

// treeWriter serializes filesystem mutations of one build, so that the
// concurrent writers of disjoint paths are safe on any billy filesystem.
type treeWriter struct {
	mu sync.Mutex
	fs billy.Filesystem
}

// writeFile creates or truncates name with the given content and permission.
func (w *treeWriter) writeFile(name string, data []byte, perm os.FileMode) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.write(name, perm, func(f io.Writer) error {
		_, err := f.Write(data)
		return err
	})
}

// write opens name for writing and hands it to fill. On filesystems supporting
// Chmod the permission is also applied to a file that already existed.
func (w *treeWriter) write(name string, perm os.FileMode, fill func(io.Writer) error) (err error) {
	f, err := w.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := fill(f); err != nil {
		return err
	}
	if c, ok := w.fs.(chmoder); ok {
		if err := c.Chmod(name, perm); err != nil {
			return fmt.Errorf("setting mode %o: %w", perm, err)
		}
	}
	return nil
}

// compress gzips src into dst, which gets mode 0644.
func (w *treeWriter) compress(src, dst string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	in, err := w.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return w.write(dst, 0644, func(out io.Writer) error {
		return deb.Gzip(out, in)
	})
}

func (w *treeWriter) mkdirAll(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fs.MkdirAll(dir, 0755)
}

// removeAll deletes dir and everything below it. A missing dir is not an error.
func (w *treeWriter) removeAll(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return util.RemoveAll(w.fs, dir)
}

func (w *treeWriter) exists(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.fs.Lstat(name)
	return err == nil
}

func (w *treeWriter) remove(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fs.Remove(name)
}
