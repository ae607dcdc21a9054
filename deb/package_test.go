package deb

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/go-cmp/cmp"
)

const testControl = "Package: foo\nVersion: 1.0\nArchitecture: amd64\nMaintainer: Test User <test@example.com>\nDescription: Test package\n"

// writeTestTree lays out a minimal package tree under root.
func writeTestTree(t *testing.T, fsys billy.Filesystem, root string) {
	t.Helper()
	files := []struct {
		path string
		body string
		mode os.FileMode
	}{
		{"DEBIAN/control", testControl, 0644},
		{"DEBIAN/postinst", "#!/bin/sh\necho installed\n", 0755},
		{"usr/bin/foo-bin", "#!/bin/sh\necho hello\n", 0755},
		{"usr/share/doc/foo/README", "read me\n", 0644},
	}
	for _, f := range files {
		if err := util.WriteFile(fsys, filepath.Join(root, f.path), []byte(f.body), f.mode); err != nil {
			t.Fatalf("writing %s: %v", f.path, err)
		}
	}
}

func TestGenerateMd5sums(t *testing.T) {
	md5Map := map[string]string{
		"usr/bin/b": "hash_b",
		"usr/bin/a": "hash_a",
	}

	// Expect sorted output
	expected := "hash_a  usr/bin/a\nhash_b  usr/bin/b\n"
	if out := generateMd5sums(md5Map); out != expected {
		t.Errorf("expected:\n%q\ngot:\n%q", expected, out)
	}
}

func TestWriteTreeReadPackage(t *testing.T) {
	fsys := memfs.New()
	root := "/tmp/build/foo_1.0_amd64"
	writeTestTree(t, fsys, root)

	var buf bytes.Buffer
	n, err := WriteTree(fsys, root, &buf)
	if err != nil {
		t.Fatalf("WriteTree failed: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTree reported %d bytes, wrote %d", n, buf.Len())
	}

	pkg, err := ReadPackage(&buf)
	if err != nil {
		t.Fatalf("ReadPackage failed: %v", err)
	}

	if pkg.Control != testControl {
		t.Errorf("control mismatch:\ngot  %q\nwant %q", pkg.Control, testControl)
	}
	if got := pkg.StandardFilename(); got != "foo_1.0_amd64.deb" {
		t.Errorf("expected foo_1.0_amd64.deb, got %s", got)
	}
	if got := pkg.Scripts[FilePostinst]; got != "#!/bin/sh\necho installed\n" {
		t.Errorf("unexpected postinst %q", got)
	}

	var paths []string
	for _, f := range pkg.Files {
		paths = append(paths, f.Path)
		if f.Path == "/usr/bin/foo-bin" && f.Mode != 0755 {
			t.Errorf("expected mode 0755 for %s, got %o", f.Path, f.Mode)
		}
	}
	if diff := cmp.Diff([]string{"/usr/bin/foo-bin", "/usr/share/doc/foo/README"}, paths); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	hash := md5.Sum([]byte("#!/bin/sh\necho hello\n"))
	if md5sums := pkg.ControlFiles[string(FileMd5sums)]; !strings.Contains(md5sums, hex.EncodeToString(hash[:])+"  usr/bin/foo-bin\n") {
		t.Errorf("md5sums missing foo-bin entry:\n%s", md5sums)
	}
}

func TestWriteTreeMissingControl(t *testing.T) {
	fsys := memfs.New()
	if err := util.WriteFile(fsys, "/pkg/usr/bin/foo", []byte("x"), 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteTree(fsys, "/pkg", &bytes.Buffer{}); err == nil {
		t.Error("expected an error when DEBIAN/control is missing")
	}
}

func TestPackageGet(t *testing.T) {
	p := &Package{Fields: []Field{{Name: "Package", Value: "foo"}, {Name: "Depends", Value: "libc6"}}}
	if got := p.Get(FieldPackage); got != "foo" {
		t.Errorf("Get(Package) = %q", got)
	}
	if got := p.Get("depends"); got != "libc6" {
		t.Errorf("Get(depends) = %q", got)
	}
	if got := p.Get(FieldVersion); got != "" {
		t.Errorf("Get(Version) = %q, want empty", got)
	}
}

func TestReadPackageGarbage(t *testing.T) {
	if _, err := ReadPackage(strings.NewReader("definitely not an ar archive")); err == nil {
		t.Error("expected an error for a non-deb stream")
	}
}

func TestIntegrationDebGeneration(t *testing.T) {
	// Ensure dpkg-deb is available
	if _, err := exec.LookPath("dpkg-deb"); err != nil {
		t.Skip("dpkg-deb not found, skipping integration test")
	}

	tmpDir := t.TempDir()
	fsys := osfs.New(tmpDir)
	writeTestTree(t, fsys, "foo_1.0_amd64")
	debPath := filepath.Join(tmpDir, "test.deb")

	f, err := os.Create(debPath)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if _, err := WriteTree(fsys, "foo_1.0_amd64", f); err != nil {
		f.Close()
		t.Fatalf("WriteTree failed: %v", err)
	}
	f.Close()

	// Validate metadata
	out, err := exec.Command("dpkg-deb", "--info", debPath).CombinedOutput()
	if err != nil {
		t.Fatalf("dpkg-deb --info failed: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "Package: foo") {
		t.Errorf("missing Package field in info")
	}

	// Validate contents
	out, err = exec.Command("dpkg-deb", "--contents", debPath).CombinedOutput()
	if err != nil {
		t.Fatalf("dpkg-deb --contents failed: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "./usr/bin/foo-bin") {
		t.Errorf("missing file in contents: %s", out)
	}
}
