package irpack

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/vmihailenco/msgpack/v5"

	"keel/internal/ir"
)

// Digest identifies function or module content. Two structurally equal
// inputs digest equally; spans participate, so moving code changes the
// digest.
type Digest [sha256.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// FuncDigest hashes the serialized form of f.
func FuncDigest(f *ir.Func) (Digest, error) {
	raw, err := msgpack.Marshal(f)
	if err != nil {
		return Digest{}, err
	}
	return sha256.Sum256(raw), nil
}

// ModuleDigest hashes the serialized form of m, schema included, so a
// layout change invalidates stored digests.
func ModuleDigest(m *ir.Module) (Digest, error) {
	raw, err := msgpack.Marshal(&payload{Schema: SchemaVersion, Module: m})
	if err != nil {
		return Digest{}, err
	}
	return sha256.Sum256(raw), nil
}
