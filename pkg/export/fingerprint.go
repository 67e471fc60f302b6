package export

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"gotypeset/pkg/layout"
)

// Fingerprint identifies the visual content of doc: two documents with
// the same fingerprint draw the same pages. Diagnostics are ignored.
func Fingerprint(doc *layout.Document) (string, error) {
	data, err := JSON(doc, WithoutDiagnostics())
	if err != nil {
		return "", err
	}
	h, err := blake2b.New(16, nil)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
