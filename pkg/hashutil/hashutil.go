package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

type HashAlgo string

const (
	HashAlgoSHA256 HashAlgo = "sha256"
	HashAlgoBLAKE3 HashAlgo = "blake3"
)

// Digest is a fixed-size content fingerprint usable as a map key.
type Digest [32]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// HashBytes returns the hash of bytes as a hex string using the specified algorithm.
func HashBytes(data []byte, algo HashAlgo) (string, error) {
	d, err := Sum(data, algo)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// Sum returns the raw digest of data.
func Sum(data []byte, algo HashAlgo) (Digest, error) {
	switch algo {
	case HashAlgoSHA256:
		return Digest(sha256.Sum256(data)), nil
	case HashAlgoBLAKE3:
		return Digest(blake3.Sum256(data)), nil
	default:
		return Digest{}, fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
}
