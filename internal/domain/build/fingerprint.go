package build

import (
	"crypto/sha256"
	"encoding/hex"
)

type Fingerprint struct {
	ContentHash  string
	TemplateHash string
	ConfigHash   string
	PageHash     string
}

func (f *Fingerprint) ComputePageHash() {
	h := sha256.New()
	h.Write([]byte(f.ContentHash))
	h.Write([]byte{0})
	h.Write([]byte(f.TemplateHash))
	h.Write([]byte{0})
	h.Write([]byte(f.ConfigHash))
	f.PageHash = hex.EncodeToString(h.Sum(nil))
}

func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
