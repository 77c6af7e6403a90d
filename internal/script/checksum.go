package script

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// DomainScript separates payload checksums from any other hash in the store.
// Version suffix enables future algorithm migration.
const DomainScript = "executioner/script/v1"

// Checksum computes the content hash of a script payload.
// Format: SHA256(domain + 0x00 + NFC(text))
//
// Text is NFC normalised so an editor re-encoding the same characters does
// not register as a change.
func Checksum(text string) string {
	h := sha256.New()
	h.Write([]byte(DomainScript))
	h.Write([]byte{0x00})
	h.Write([]byte(norm.NFC.String(text)))
	return hex.EncodeToString(h.Sum(nil))
}
