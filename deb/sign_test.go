package deb

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// Helper to generate a temporary GPG key
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

func TestSignDetached(t *testing.T) {
	entity, key := generateTestKey(t)
	data := []byte("sign me")

	var sig bytes.Buffer
	if err := SignDetached(&sig, bytes.NewReader(data), key); err != nil {
		t.Fatalf("SignDetached failed: %v", err)
	}
	if !strings.Contains(sig.String(), "-----BEGIN PGP SIGNATURE-----") {
		t.Fatalf("output does not look like an armored signature:\n%s", sig.String())
	}

	keyring := openpgp.EntityList{entity}
	if _, err := openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(data), &sig, nil); err != nil {
		t.Errorf("signature does not verify: %v", err)
	}
}

func TestSignDetachedPublicKeyOnly(t *testing.T) {
	entity, _ := generateTestKey(t)

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("armor encode failed: %v", err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	w.Close()

	if err := SignDetached(&bytes.Buffer{}, strings.NewReader("x"), buf.String()); err == nil {
		t.Error("expected an error for a keyring without private key")
	}
}

func TestSignDetachedInvalidKey(t *testing.T) {
	if err := SignDetached(&bytes.Buffer{}, strings.NewReader("x"), "not a key"); err == nil {
		t.Error("expected an error for an invalid key")
	}
}
