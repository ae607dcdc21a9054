package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/etnz/smartdeb/build"
	"github.com/etnz/smartdeb/deb"
	"github.com/etnz/smartdeb/manifest"
	"github.com/spf13/cobra"
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// NewCLI creates a CLI logging to w.
func NewCLI(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "smart-deb",
		Short:        "Build Debian packages from a descriptor",
		SilenceUsage: true,
	}
	root.AddCommand(c.buildCommand())
	root.AddCommand(c.inspectCommand())
	return root
}

// buildOpts holds the command-line flags for the build command.
type buildOpts struct {
	descriptor string // descriptor file
	out        string // overrides the descriptor's out
	target     string // overrides the descriptor's target
	archiver   string // dpkg or builtin
	dpkgDeb    string // dpkg-deb executable
	signKey    string // armored private key file
}

func (c *CLI) buildCommand() *cobra.Command {
	opts := buildOpts{descriptor: "debian.json", archiver: "dpkg", dpkgDeb: "dpkg-deb"}

	cmd := &cobra.Command{
		Use:   "build [flags] FILE...",
		Short: "Assemble the package tree and build the .deb",
		Long: `Build copies FILEs into <out>/<package>_<version>_<architecture>/<target>,
writes DEBIAN/control, the maintainer scripts and the changelog from the
descriptor, then runs the archiver on the tree.

The GPG_PRIVATE_KEY environment variable, or --sign-key-file, enables a
detached signature of the built package.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.descriptor, "descriptor", "d", opts.descriptor, "package descriptor (JSON or YAML)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output directory (overrides the descriptor)")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "install directory of FILEs inside the package (overrides the descriptor)")
	cmd.Flags().StringVar(&opts.archiver, "archiver", opts.archiver, "archiver: dpkg or builtin")
	cmd.Flags().StringVar(&opts.dpkgDeb, "dpkg-deb", opts.dpkgDeb, "dpkg-deb executable")
	cmd.Flags().StringVar(&opts.signKey, "sign-key-file", "", "armored OpenPGP private key signing the package")
	return cmd
}

func (c *CLI) runBuild(cmd *cobra.Command, opts buildOpts, args []string) error {
	d, err := manifest.File(opts.descriptor).Descriptor()
	if err != nil {
		return err
	}
	if opts.out != "" || opts.target != "" {
		d = d.Clone()
		if opts.out != "" {
			d.Override(deb.FieldOut, opts.out)
		}
		if opts.target != "" {
			d.Override(deb.FieldTarget, opts.target)
		}
	}

	var archiver build.Archiver
	switch opts.archiver {
	case "dpkg":
		archiver = build.DpkgDeb{Binary: opts.dpkgDeb}
	case "builtin":
		archiver = build.Builtin{}
	default:
		return fmt.Errorf("unknown archiver %q, want dpkg or builtin", opts.archiver)
	}

	key := os.Getenv("GPG_PRIVATE_KEY")
	if opts.signKey != "" {
		content, err := os.ReadFile(opts.signKey)
		if err != nil {
			return fmt.Errorf("reading signing key: %w", err)
		}
		key = string(content)
	}

	fsys := build.HostFS()
	feed := make(build.SliceFeed, 0, len(args))
	for _, arg := range args {
		f, err := build.StatFile(fsys, arg)
		if err != nil {
			return err
		}
		feed = append(feed, f)
	}

	res, err := build.Run(cmd.Context(), d, &feed,
		build.WithFilesystem(fsys),
		build.WithArchiver(archiver),
		build.WithLogger(c.Logger),
		build.WithSigningKey(key),
		build.WithListener(func(e fmt.Stringer) { c.Logger.Debug("event", "event", e) }),
	)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Package)
	if res.Signature != "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.Signature)
	}
	return nil
}

func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE.deb",
		Short: "Print the control file, scripts and payload of a .deb",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			pkg, err := deb.ReadPackage(f)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			printPackage(cmd.OutOrStdout(), pkg)
			return nil
		},
	}
}

func printPackage(w io.Writer, pkg *deb.Package) {
	fmt.Fprint(w, pkg.Control)

	for _, name := range deb.MaintainerScripts {
		if body, ok := pkg.Scripts[name]; ok {
			fmt.Fprintf(w, "\n[%s]\n%s", name, body)
		}
	}

	var extra []string
	for name := range pkg.ControlFiles {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		fmt.Fprintf(w, "\n[%s] %d bytes\n", name, len(pkg.ControlFiles[name]))
	}

	fmt.Fprintln(w)
	for _, f := range pkg.Files {
		fmt.Fprintf(w, "%04o %8d %s\n", f.Mode, len(f.Body), f.Path)
	}
}
