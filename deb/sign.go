package deb

import (
	"fmt"
	"io"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// SignDetached writes an ASCII-armored detached OpenPGP signature of message to w.
// key is an ASCII-armored keyring; its first entity holding a private key signs.
func SignDetached(w io.Writer, message io.Reader, key string) error {
	entities, err := openpgp.ReadArmoredKeyRing(strings.NewReader(key))
	if err != nil {
		return fmt.Errorf("reading signing key: %w", err)
	}
	var signer *openpgp.Entity
	for _, e := range entities {
		if e.PrivateKey != nil {
			signer = e
			break
		}
	}
	if signer == nil {
		return fmt.Errorf("no private key found")
	}
	if signer.PrivateKey.Encrypted {
		return fmt.Errorf("private key is passphrase protected")
	}

	if err := openpgp.ArmoredDetachSign(w, signer, message, nil); err != nil {
		return fmt.Errorf("signing: %w", err)
	}
	return nil
}
