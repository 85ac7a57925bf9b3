package util

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash is returned when a stored password hash cannot be parsed.
var ErrInvalidHash = errors.New("invalid password hash")

const (
	KDFProfileInteractive = "interactive"
	KDFProfileModerate    = "moderate"

	saltLen = 16
)

type Argon2idParams struct {
	Time        uint32 `json:"time" yaml:"time"`
	MemoryKiB   uint32 `json:"memory" yaml:"memory"`
	Parallelism uint8  `json:"parallelism" yaml:"parallelism"`
	KeyLen      uint32 `json:"key_len" yaml:"key_len"`
}

func DefaultArgon2idParams() Argon2idParams {
	p, _ := Argon2idProfile(KDFProfileModerate)
	return p
}

// Argon2idProfile returns named parameter sets. Interactive matches the
// OWASP minimum and is what the development backend uses for logins.
func Argon2idProfile(name string) (Argon2idParams, error) {
	switch name {
	case KDFProfileInteractive:
		return Argon2idParams{Time: 2, MemoryKiB: 19 * 1024, Parallelism: 1, KeyLen: 32}, nil
	case KDFProfileModerate:
		return Argon2idParams{Time: 3, MemoryKiB: 64 * 1024, Parallelism: 4, KeyLen: 32}, nil
	default:
		return Argon2idParams{}, fmt.Errorf("unknown argon2id profile %q", name)
	}
}

func ValidateArgon2idParams(p Argon2idParams) error {
	switch {
	case p.KeyLen != 32:
		return fmt.Errorf("argon2id key length must be 32 bytes")
	case p.Time < 1:
		return fmt.Errorf("argon2id time must be at least 1")
	case p.MemoryKiB < 19*1024:
		return fmt.Errorf("argon2id memory must be at least 19 MiB")
	case p.Parallelism < 1:
		return fmt.Errorf("argon2id parallelism must be at least 1")
	}
	return nil
}

func DeriveArgon2idKey(passphrase string, salt []byte, params Argon2idParams) ([]byte, error) {
	if err := ValidateArgon2idParams(params); err != nil {
		return nil, err
	}
	key := argon2.IDKey([]byte(passphrase), salt, params.Time, params.MemoryKiB, params.Parallelism, params.KeyLen)
	return key, nil
}

func CompareArgon2idKey(passphrase string, salt []byte, params Argon2idParams, expectedKey []byte) (bool, error) {
	key, err := DeriveArgon2idKey(passphrase, salt, params)
	if err != nil {
		return false, err
	}
	defer WipeBytes(key)
	return subtle.ConstantTimeCompare(key, expectedKey) == 1, nil
}

// HashPassword derives a key from password with a fresh salt and encodes
// both in the PHC string form:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<key>
func HashPassword(password string, params Argon2idParams) (string, error) {
	salt, err := RandomBytes(saltLen)
	if err != nil {
		return "", err
	}
	key, err := DeriveArgon2idKey(Normalize(password), salt, params)
	if err != nil {
		return "", err
	}
	defer WipeBytes(key)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.MemoryKiB, params.Time, params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches an encoded hash produced
// by HashPassword. The parameters are taken from the hash itself.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, fmt.Errorf("%w: unsupported version", ErrInvalidHash)
	}
	var params Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.MemoryKiB, &params.Time, &params.Parallelism); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("%w: key: %v", ErrInvalidHash, err)
	}
	params.KeyLen = uint32(len(key))
	return CompareArgon2idKey(Normalize(password), salt, params, key)
}
