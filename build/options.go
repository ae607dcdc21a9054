package build

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"
)

// Option configures a Builder.
type Option func(*Builder)

// WithFilesystem sets the filesystem holding the input files and receiving the
// package tree. Defaults to HostFS.
func WithFilesystem(fsys billy.Filesystem) Option {
	return func(b *Builder) {
		if fsys != nil {
			b.fs = fsys
		}
	}
}

// WithLogger sets the logger. A nil logger means log.Default().
func WithLogger(logger *log.Logger) Option {
	return func(b *Builder) {
		if logger == nil {
			logger = log.Default()
		}
		b.log = logger
	}
}

// WithArchiver sets the archiver. Defaults to DpkgDeb.
func WithArchiver(a Archiver) Option {
	return func(b *Builder) {
		if a != nil {
			b.arch = a
		}
	}
}

// WithListener registers a callback receiving build events.
// Calls are serialized, even for events raised by concurrent steps.
func WithListener(l Listener) Option {
	return func(b *Builder) {
		if l == nil {
			b.emit = func(fmt.Stringer) {}
			return
		}
		var mu sync.Mutex
		b.emit = func(e fmt.Stringer) {
			mu.Lock()
			defer mu.Unlock()
			l(e)
		}
	}
}

// WithSigningKey signs the built archive with an ASCII-armored OpenPGP private key.
// An empty key disables signing.
func WithSigningKey(key string) Option {
	return func(b *Builder) { b.key = key }
}
