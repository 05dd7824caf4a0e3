package util

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/taigrr/colorhash"
	"github.com/zeebo/blake3"
)

// MaxFanout is the largest number of seed buckets. Each bucket is one
// directory entry in the root, so this also bounds the root's payload.
const MaxFanout = 1000

// BucketName places key in one of fanout buckets. The bucket comes from a
// color hash of the key, so names spread evenly and the same key always
// lands in the same bucket.
func BucketName(key string, fanout int) (string, error) {
	if fanout < 1 || fanout > MaxFanout {
		return "", ErrInvalidFanout
	}
	bucket := uint64(colorhash.HashString(key)) % uint64(fanout)
	return fmt.Sprintf("b%03d", bucket), nil
}

// Digest returns the hex BLAKE3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GetHash calculates the BLAKE3-256 digest of everything read from r.
func GetHash(r io.Reader) (string, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GetFileHash hashes the file at path.
func GetFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return GetHash(f)
}
