package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "$argon2id$"

var phcEncoding = base64.RawStdEncoding

// phcHash is a parsed argon2id hash in PHC string form:
//
//	$argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<key>
type phcHash struct {
	memoryKiB uint32
	passes    uint32
	lanes     uint8
	salt      []byte
	key       []byte
}

func (h phcHash) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix, argon2.Version,
		h.memoryKiB, h.passes, h.lanes,
		phcEncoding.EncodeToString(h.salt),
		phcEncoding.EncodeToString(h.key),
	)
}

func parsePHC(encoded string) (phcHash, error) {
	rest, ok := strings.CutPrefix(encoded, argon2Prefix)
	if !ok {
		return phcHash{}, ErrInvalidHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 || fields[0] != "v="+strconv.Itoa(argon2.Version) {
		return phcHash{}, ErrInvalidHash
	}

	var h phcHash
	for _, kv := range strings.Split(fields[1], ",") {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return phcHash{}, ErrInvalidHash
		}
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || n == 0 {
			return phcHash{}, ErrInvalidHash
		}
		switch name {
		case "m":
			h.memoryKiB = uint32(n)
		case "t":
			h.passes = uint32(n)
		case "p":
			if n > 255 {
				return phcHash{}, ErrInvalidHash
			}
			h.lanes = uint8(n)
		default:
			return phcHash{}, ErrInvalidHash
		}
	}
	if h.memoryKiB == 0 || h.passes == 0 || h.lanes == 0 {
		return phcHash{}, ErrInvalidHash
	}

	var err error
	if h.salt, err = phcEncoding.DecodeString(fields[2]); err != nil {
		return phcHash{}, ErrInvalidHash
	}
	if h.key, err = phcEncoding.DecodeString(fields[3]); err != nil {
		return phcHash{}, ErrInvalidHash
	}
	return h, nil
}

// acceptable reports whether a stored hash is safe to recompute under limits.
// Stored strings are untrusted, so cost may not exceed twice the configured cost.
func (h phcHash) acceptable(limits Argon2idParams) bool {
	switch {
	case h.memoryKiB > 2*limits.MemoryKiB, h.passes > 2*limits.Iterations, int(h.lanes) > 2*int(limits.Parallelism):
		return false
	case len(h.salt) < 8 || len(h.salt) > 64:
		return false
	case len(h.key) < 16 || len(h.key) > 128:
		return false
	}
	return true
}

func (c Config) hashArgon2id(password string) (string, error) {
	h := phcHash{
		memoryKiB: c.Params.MemoryKiB,
		passes:    c.Params.Iterations,
		lanes:     c.Params.Parallelism,
		salt:      make([]byte, c.Params.SaltLength),
	}
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	h.key = argon2.IDKey([]byte(password), h.salt, h.passes, h.memoryKiB, h.lanes, c.Params.KeyLength)
	return h.String(), nil
}

func (c Config) verifyArgon2id(encoded, password string) (bool, error) {
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	if !h.acceptable(c.Params) {
		return false, ErrInvalidHash
	}
	got := argon2.IDKey([]byte(password), h.salt, h.passes, h.memoryKiB, h.lanes, uint32(len(h.key))) // #nosec G115 -- len checked by acceptable.
	return subtle.ConstantTimeCompare(got, h.key) == 1, nil
}
