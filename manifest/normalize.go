package manifest

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/smartdeb/deb"
	"github.com/etnz/smartdeb/errors"
)

const opNormalize = "manifest.normalize"

// Config is a normalized descriptor. It is never modified after Normalize returns it.
type Config struct {
	Package      string
	Version      string
	Architecture string
	Maintainer   string

	// Target is the directory, relative to the package tree, receiving the input files.
	Target string
	// Out is the directory receiving the package tree and the archive.
	Out string
	// Verbose enables logging of the archiver standard output.
	Verbose bool

	// Control lists every descriptor field, orchestration fields included, in declaration order.
	Control []deb.Field
	// Changelog entries, in declaration order.
	Changelog []deb.ChangelogEntry
	// Scripts maps maintainer scripts to their lines. Scripts without lines are absent.
	Scripts map[deb.ControlFile][]string
}

// Name returns "<package>_<version>_<architecture>".
func (c *Config) Name() string {
	return fmt.Sprintf("%s_%s_%s", c.Package, c.Version, c.Architecture)
}

// Root returns the package tree directory, "<out>/<package>_<version>_<architecture>".
func (c *Config) Root() string {
	return filepath.Join(c.Out, c.Name())
}

// Archive returns the path of the archive built from Root.
func (c *Config) Archive() string {
	return c.Root() + ".deb"
}

// ChangelogDir returns the documentation directory holding the changelog, relative to Root.
func (c *Config) ChangelogDir() string {
	return filepath.Join(deb.DocDir, c.Package)
}

// changelogDateLayouts are tried in order to parse changelog dates.
var changelogDateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize resolves src and validates it into a Config.
// The descriptor itself is left untouched: defaults only exist in the Config.
func Normalize(src Source) (*Config, error) {
	d, err := src.Descriptor()
	if err != nil {
		if errors.KindOf(err) != "" {
			return nil, err
		}
		return nil, errors.Wrap(errors.DescriptorLoad, opLoad, "", err, "resolving descriptor")
	}
	if d == nil {
		return nil, errors.New(errors.DescriptorLoad, opLoad, "", "no descriptor")
	}

	c := &Config{
		Verbose: true,
		Scripts: make(map[deb.ControlFile][]string),
	}

	for _, k := range d.keys {
		v := d.values[k]
		orchestration := deb.IsOrchestration(k)
		if _, isMap := v.(*Descriptor); isMap && !orchestration {
			return nil, errors.New(errors.Configuration, opNormalize, "", "field %q: a control field cannot hold a mapping", k)
		}
		c.Control = append(c.Control, deb.Field{Name: k, Value: render(v)})
	}

	required := func(lookup func(deb.ControlField) (any, bool), name deb.ControlField) (string, error) {
		v, ok := lookup(name)
		s := strings.TrimSpace(render(v))
		if !ok || s == "" {
			return "", errors.New(errors.Configuration, opNormalize, "", "%q is undefined", strings.ToLower(string(name)))
		}
		return s, nil
	}

	if c.Target, err = required(d.orchestration, deb.FieldTarget); err != nil {
		return nil, err
	}
	if c.Out, err = required(d.orchestration, deb.FieldOut); err != nil {
		return nil, err
	}
	if c.Package, err = required(d.field, deb.FieldPackage); err != nil {
		return nil, err
	}
	if c.Version, err = required(d.field, deb.FieldVersion); err != nil {
		return nil, err
	}
	if c.Architecture, err = required(d.field, deb.FieldArchitecture); err != nil {
		return nil, err
	}
	if v, ok := d.field(deb.FieldMaintainer); ok {
		c.Maintainer = render(v)
	}

	if v, ok := d.orchestration(deb.FieldVerbose); ok && v != nil {
		if c.Verbose, err = parseBool(v); err != nil {
			return nil, errors.Wrap(errors.Configuration, opNormalize, "", err, "field %q", deb.FieldVerbose)
		}
	}

	if v, ok := d.orchestration(deb.FieldChangelog); ok && v != nil {
		if c.Changelog, err = parseChangelog(v); err != nil {
			return nil, errors.Wrap(errors.Configuration, opNormalize, "", err, "field %q", deb.FieldChangelog)
		}
	}

	scriptFields := map[deb.ControlFile]deb.ControlField{
		deb.FilePreinst:  deb.FieldPreinst,
		deb.FilePostinst: deb.FieldPostinst,
		deb.FilePrerm:    deb.FieldPrerm,
		deb.FilePostrm:   deb.FieldPostrm,
	}
	for _, script := range deb.MaintainerScripts {
		v, ok := d.orchestration(scriptFields[script])
		if !ok || v == nil {
			continue
		}
		lines, err := stringList(v)
		if err != nil {
			return nil, errors.Wrap(errors.Configuration, opNormalize, "", err, "field %q", script)
		}
		if len(lines) > 0 {
			c.Scripts[script] = lines
		}
	}

	return c, nil
}

// render formats a value as control field text. Sequences are comma separated.
func render(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, render(item))
		}
		return strings.Join(parts, ", ")
	case *Descriptor:
		parts := make([]string, 0, v.Len())
		for _, k := range v.keys {
			parts = append(parts, k+"="+render(v.values[k]))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func parseBool(v any) (bool, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "on":
			return true, nil
		case "no", "off":
			return false, nil
		}
		return strconv.ParseBool(strings.TrimSpace(v))
	}
	return false, fmt.Errorf("expected a boolean, got %T", v)
}

// stringList accepts a sequence of scalars or a single string.
func stringList(v any) ([]string, error) {
	switch v := v.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		list := make([]string, 0, len(v))
		for i, item := range v {
			if _, isMap := item.(*Descriptor); isMap {
				return nil, fmt.Errorf("item %d: expected a scalar", i)
			}
			if _, isList := item.([]any); isList {
				return nil, fmt.Errorf("item %d: expected a scalar", i)
			}
			list = append(list, render(item))
		}
		return list, nil
	}
	return nil, fmt.Errorf("expected a sequence, got %T", v)
}

func parseChangelog(v any) ([]deb.ChangelogEntry, error) {
	var items []any
	switch v := v.(type) {
	case []any:
		items = v
	case []deb.ChangelogEntry:
		return v, nil
	default:
		return nil, fmt.Errorf("expected a sequence of entries, got %T", v)
	}

	entries := make([]deb.ChangelogEntry, 0, len(items))
	for i, item := range items {
		m, ok := item.(*Descriptor)
		if !ok {
			return nil, fmt.Errorf("entry %d: expected a mapping", i)
		}
		get := func(name string) any {
			v, _ := m.field(deb.ControlField(name))
			return v
		}

		e := deb.ChangelogEntry{
			Version:      render(get("version")),
			Distribution: render(get("distribution")),
			Urgency:      render(get("urgency")),
		}
		if changes := get("changes"); changes != nil {
			list, err := stringList(changes)
			if err != nil {
				return nil, fmt.Errorf("entry %d: changes: %w", i, err)
			}
			e.Changes = list
		}
		date, err := parseDate(get("date"))
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		e.Date = date
		entries = append(entries, e)
	}
	return entries, nil
}

func parseDate(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s := strings.TrimSpace(render(v))
	if s == "" {
		return time.Time{}, fmt.Errorf("date is undefined")
	}
	for _, layout := range changelogDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
