package internal

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	recoveryCodeMin = 1000
	recoveryCodeMax = 9999 // exclusive
)

// NewRecoveryCode returns a four-digit code drawn uniformly from [1000, 9999)
// using crypto/rand.
func NewRecoveryCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(recoveryCodeMax-recoveryCodeMin))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+recoveryCodeMin, 10), nil
}
