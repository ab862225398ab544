package password

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
)

// Scrypt hashes passwords with scrypt(N=16384, r=8, p=1) into a 64-byte key,
// encoded as standard base64 with no parameter header. Stores migrated from
// older deployments carry hashes in this form.
type Scrypt struct{}

func (Scrypt) Hash(password, salt string) (string, error) {
	if salt == "" {
		return "", ErrEmptySalt
	}
	key, err := scrypt.Key([]byte(password), []byte(salt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func (Scrypt) Verify(password, salt, encodedHash string) (bool, error) {
	want, err := base64.StdEncoding.DecodeString(encodedHash)
	if err != nil || len(want) != scryptKeyLen {
		return false, fmt.Errorf("%w: scrypt encoding", ErrInvalidHash)
	}
	got, err := scrypt.Key([]byte(password), []byte(salt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// NeedsUpgrade is always false; scrypt parameters are fixed.
func (Scrypt) NeedsUpgrade(string) (bool, error) {
	return false, nil
}
