package build

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/etnz/smartdeb/deb"
	"github.com/etnz/smartdeb/manifest"
)

// hostScenario writes a descriptor and an input file under a temporary directory.
func hostScenario(t *testing.T) (dir string, src manifest.Source, feed *SliceFeed) {
	t.Helper()
	dir = t.TempDir()
	bin := filepath.Join(dir, "src", "foo-bin")
	if err := os.MkdirAll(filepath.Dir(bin), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bin, []byte("#!/bin/sh\necho foo\n"), 0755); err != nil {
		t.Fatal(err)
	}

	descriptor := `{
  "package": "foo",
  "version": "1.0",
  "architecture": "amd64",
  "maintainer": "Test User <test@example.com>",
  "description": "Test package",
  "_target": "usr/bin",
  "_out": "` + filepath.Join(dir, "build") + `",
  "preinst": ["#!/bin/sh", "echo hi"]
}`
	path := filepath.Join(dir, "debian.json")
	if err := os.WriteFile(path, []byte(descriptor), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := StatFile(HostFS(), bin)
	if err != nil {
		t.Fatal(err)
	}
	return dir, manifest.File(path), &SliceFeed{f}
}

func generateTestKey(t *testing.T) (*openpgp.Entity, string) {
	t.Helper()
	entity, err := openpgp.NewEntity("Test", "test", "test@example.com", nil)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatalf("armor encode failed: %v", err)
	}
	if err := entity.SerializePrivate(w, nil); err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	w.Close()
	return entity, buf.String()
}

func TestBuiltinOnHost(t *testing.T) {
	dir, src, feed := hostScenario(t)
	entity, key := generateTestKey(t)

	res, err := Run(context.Background(), src, feed, WithArchiver(Builtin{}), WithSigningKey(key), WithLogger(quiet()))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := filepath.Join(dir, "build", "foo_1.0_amd64.deb"); res.Package != want {
		t.Errorf("package = %s, want %s", res.Package, want)
	}

	info, err := os.Stat(filepath.Join(dir, "build", "foo_1.0_amd64", "DEBIAN", "preinst"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("preinst mode = %o, want 0755", info.Mode().Perm())
	}

	data, err := os.ReadFile(res.Package)
	if err != nil {
		t.Fatal(err)
	}
	pkg, err := deb.ReadPackage(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadPackage failed: %v", err)
	}
	if pkg.StandardFilename() != "foo_1.0_amd64.deb" {
		t.Errorf("unexpected filename %s", pkg.StandardFilename())
	}
	if strings.Contains(pkg.Control, "Target") || strings.Contains(pkg.Control, "Out") {
		t.Errorf("orchestration fields leaked: %q", pkg.Control)
	}
	if pkg.Scripts[deb.FilePreinst] != "#!/bin/sh\necho hi\n" {
		t.Errorf("unexpected preinst %q", pkg.Scripts[deb.FilePreinst])
	}
	if len(pkg.Files) != 1 || pkg.Files[0].Path != "/usr/bin/foo-bin" {
		t.Errorf("unexpected payload %+v", pkg.Files)
	}

	sig, err := os.Open(res.Signature)
	if err != nil {
		t.Fatalf("opening signature: %v", err)
	}
	defer sig.Close()
	if _, err := openpgp.CheckArmoredDetachedSignature(openpgp.EntityList{entity}, bytes.NewReader(data), sig, nil); err != nil {
		t.Errorf("signature does not verify: %v", err)
	}
}

func TestDpkgDebOnHost(t *testing.T) {
	// Ensure dpkg-deb is available
	if _, err := exec.LookPath("dpkg-deb"); err != nil {
		t.Skip("dpkg-deb not found, skipping integration test")
	}
	_, src, feed := hostScenario(t)

	res, err := Run(context.Background(), src, feed, WithLogger(quiet()))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out, err := exec.Command("dpkg-deb", "--info", res.Package).CombinedOutput()
	if err != nil {
		t.Fatalf("dpkg-deb --info failed: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "Package: foo") {
		t.Errorf("missing Package field in info:\n%s", out)
	}
	out, err = exec.Command("dpkg-deb", "--contents", res.Package).CombinedOutput()
	if err != nil {
		t.Fatalf("dpkg-deb --contents failed: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "./usr/bin/foo-bin") {
		t.Errorf("missing file in contents: %s", out)
	}
}

func TestDpkgDebMissingBinary(t *testing.T) {
	_, src, feed := hostScenario(t)
	_, err := Run(context.Background(), src, feed, WithArchiver(DpkgDeb{Binary: "no-such-dpkg-deb"}), WithLogger(quiet()))
	if err == nil || !strings.Contains(err.Error(), "build.archive") {
		t.Errorf("Run() error = %v, want an archiver error", err)
	}
}
