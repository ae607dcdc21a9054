// Package build assembles a Debian package tree from a descriptor and a set of
// input files, then hands the tree to an archiver.
//
// A Builder collects input files until the end of input, then runs the
// pipeline once:
//
//	normalize descriptor
//	write DEBIAN/control, maintainer scripts and changelog (concurrently)
//	place input files under <target>
//	run the archiver (and sign the archive when a key is configured)
//
// The tree is rooted at <out>/<package>_<version>_<architecture> and is
// recreated by every build. Script and changelog write failures do not stop
// the archiver; they fail the build once it has run. Concurrent
// builds of the same package into the same out directory must be serialized
// by the caller.
package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/etnz/smartdeb/deb"
	"github.com/etnz/smartdeb/errors"
	"github.com/etnz/smartdeb/manifest"
	"github.com/go-git/go-billy/v5"
	"golang.org/x/sync/errgroup"
)

const (
	opCollect = "build.collect"
	opArchive = "build.archive"
	opSign    = "build.sign"
)

// State is a step of the build pipeline.
type State int

const (
	Collecting State = iota
	Finalizing
	WritingControl
	WritingScripts
	WritingChangelog
	PlacingFiles
	InvokingArchiver
	Done
	Failed
)

var stateNames = map[State]string{
	Collecting:       "collecting",
	Finalizing:       "finalizing",
	WritingControl:   "writing-control",
	WritingScripts:   "writing-scripts",
	WritingChangelog: "writing-changelog",
	PlacingFiles:     "placing-files",
	InvokingArchiver: "invoking-archiver",
	Done:             "done",
	Failed:           "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// InputFile is one file collected for the package.
type InputFile struct {
	// Path locates the file on the build filesystem.
	Path string
	// Stream is set for stream-only content (pipes, sockets, devices) that cannot be copied.
	Stream bool
}

// StatFile describes the file at path. Anything but a regular file is a stream.
func StatFile(fsys billy.Filesystem, path string) (InputFile, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return InputFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return InputFile{Path: path, Stream: !info.Mode().IsRegular()}, nil
}

// Feed is a sequential source of input files. Next returns io.EOF at the end of input.
type Feed interface {
	Next() (InputFile, error)
}

// SliceFeed feeds the files of a slice, in order.
type SliceFeed []InputFile

func (f *SliceFeed) Next() (InputFile, error) {
	if len(*f) == 0 {
		return InputFile{}, io.EOF
	}
	next := (*f)[0]
	*f = (*f)[1:]
	return next, nil
}

// Result describes a successful build.
type Result struct {
	Config    *manifest.Config
	Package   string // path of the .deb
	Signature string // path of the detached signature, if signed
}

// Builder runs one package build.
type Builder struct {
	src  manifest.Source
	fs   billy.Filesystem
	log  *log.Logger
	arch Archiver
	emit Listener
	key  string

	mu     sync.Mutex
	state  State
	files  []InputFile
	err    error
	result *Result
	once   sync.Once
}

// New returns a Builder collecting files for the package described by src.
func New(src manifest.Source, opts ...Option) *Builder {
	b := &Builder{
		src:  src,
		fs:   HostFS(),
		log:  log.Default(),
		arch: DpkgDeb{},
		emit: func(fmt.Stringer) {},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current pipeline step.
func (b *Builder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Builder) setState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = s
	b.log.Debug("build state", "state", s)
}

// fail records err as the terminal error, unless one is already recorded.
func (b *Builder) fail(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
	b.state = Failed
	return b.err
}

// Add buffers an input file. A stream-only file fails the build immediately.
func (b *Builder) Add(f InputFile) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.err != nil:
		return b.err
	case b.state != Collecting:
		return errors.New(errors.Configuration, opCollect, f.Path, "build is %s", b.state)
	case f.Stream:
		b.err = errors.New(errors.UnsupportedInput, opCollect, f.Path, "streaming not supported")
		b.state = Failed
		return b.err
	}
	b.files = append(b.files, f)
	return nil
}

// Finish signals the end of input and runs the pipeline.
// The pipeline runs once; later calls return the same outcome.
func (b *Builder) Finish(ctx context.Context) (*Result, error) {
	b.once.Do(func() {
		b.mu.Lock()
		err := b.err
		b.mu.Unlock()
		if err != nil {
			return
		}

		res, err := b.run(ctx)
		if err != nil {
			b.fail(err)
			b.log.Error("build failed", "err", err)
			return
		}
		b.mu.Lock()
		b.result = res
		b.mu.Unlock()
		b.setState(Done)
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.result, b.err
}

func (b *Builder) run(ctx context.Context) (*Result, error) {
	b.mu.Lock()
	if b.err != nil {
		defer b.mu.Unlock()
		return nil, b.err
	}
	b.state = Finalizing
	files := b.files
	b.files = nil
	b.mu.Unlock()
	b.log.Debug("build state", "state", Finalizing)

	cfg, err := manifest.Normalize(b.src)
	if err != nil {
		return nil, err
	}

	root := cfg.Root()
	b.log.Info("assembling package tree", "package", cfg.Name(), "files", len(files))

	w := &treeWriter{fs: b.fs}
	if err := w.removeAll(root); err != nil {
		return nil, errors.Wrap(errors.Write, opTree, root, err, "clearing package tree")
	}
	if err := w.mkdirAll(root); err != nil {
		return nil, errors.Wrap(errors.Write, opTree, root, err, "creating package tree")
	}
	b.emit(EventTreeCreated{Root: root})

	// Control, scripts and changelog write disjoint paths. Only a control
	// failure stops the pipeline here.
	var scriptErr, changelogErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		b.setState(WritingControl)
		return b.writeControl(w, cfg)
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		b.setState(WritingScripts)
		scriptErr = b.installScripts(w, cfg)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		if len(cfg.Changelog) > 0 {
			b.setState(WritingChangelog)
		}
		changelogErr = b.writeChangelog(w, cfg)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	pending := stderrors.Join(scriptErr, changelogErr)

	b.setState(PlacingFiles)
	if err := b.placeFiles(w, cfg, files); err != nil {
		return nil, err
	}

	b.setState(InvokingArchiver)
	res, err := b.archive(ctx, cfg)
	if pending != nil {
		if err != nil {
			b.log.Error("archiver failed", "err", err)
		}
		return nil, pending
	}
	if err != nil {
		return nil, err
	}

	if b.key != "" {
		if res.Signature, err = b.sign(res.Package); err != nil {
			return nil, err
		}
	}
	b.log.Info("package built", "package", res.Package)
	return res, nil
}

// archive runs the archiver on the tree and reports its output.
func (b *Builder) archive(ctx context.Context, cfg *manifest.Config) (*Result, error) {
	root := cfg.Root()
	out, err := b.arch.Archive(ctx, b.fs, root)
	if out == nil {
		out = &ArchiveResult{}
	}

	if stdout := strings.TrimSpace(out.Stdout); cfg.Verbose && stdout != "" {
		b.log.Info(stdout)
	}
	stderr := strings.TrimSpace(out.Stderr)
	if stderr != "" {
		b.log.Error(stderr)
	}
	if err != nil {
		if stderr != "" {
			return nil, errors.Wrap(errors.Archiver, opArchive, root, err, "%s", stderr)
		}
		return nil, errors.Wrap(errors.Archiver, opArchive, root, err, "")
	}

	pkg := out.Package
	if pkg == "" {
		pkg = cfg.Archive()
	}
	b.emit(EventArchiveBuilt{Package: pkg})
	return &Result{Config: cfg, Package: pkg}, nil
}

// sign writes <pkg>.asc, a detached signature of the built archive.
func (b *Builder) sign(pkg string) (string, error) {
	sig := pkg + ".asc"
	f, err := b.fs.Open(pkg)
	if err != nil {
		return "", errors.Wrap(errors.Sign, opSign, pkg, err, "opening package")
	}
	defer f.Close()

	w := &treeWriter{fs: b.fs}
	err = w.write(sig, 0644, func(out io.Writer) error {
		return deb.SignDetached(out, f, b.key)
	})
	if err != nil {
		return "", errors.Wrap(errors.Sign, opSign, sig, err, "signing package")
	}
	b.emit(EventArchiveSigned{Signature: sig})
	return sig, nil
}

// Run builds the package described by src from the files of feed.
// A feed error other than io.EOF aborts the build.
func Run(ctx context.Context, src manifest.Source, feed Feed, opts ...Option) (*Result, error) {
	b := New(src, opts...)
	for {
		f, err := feed.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, b.fail(errors.Wrap(errors.UnsupportedInput, opCollect, "", err, "reading input files"))
		}
		if err := b.Add(f); err != nil {
			return nil, err
		}
	}
	return b.Finish(ctx)
}
