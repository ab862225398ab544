package stores

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const challengeRecordVersionV1 = 1

var (
	ErrChallengeNotFound         = errors.New("recovery challenge not found")
	ErrChallengeMismatch         = errors.New("recovery code mismatch")
	ErrChallengeAttemptsExceeded = errors.New("recovery challenge attempts exceeded")
	ErrChallengeUnavailable      = errors.New("recovery challenge store unavailable")
)

// Challenge is an outstanding recovery code for one handle. Only the SHA-256
// of the code is kept.
type Challenge struct {
	CodeHash  [32]byte
	Attempts  uint16
	ExpiresAt int64 // unix milliseconds
}

// ChallengeStore holds at most one live challenge per handle.
type ChallengeStore interface {
	// Save replaces any outstanding challenge for handle.
	Save(ctx context.Context, handle, code string) error
	// Consume removes the challenge when code matches. A mismatch counts an
	// attempt and removes the challenge once maxAttempts is reached. An absent
	// or expired challenge never matches.
	Consume(ctx context.Context, handle, code string, maxAttempts int) error
	Remove(ctx context.Context, handle string) error
}

var (
	_ ChallengeStore = (*MemoryChallengeStore)(nil)
	_ ChallengeStore = (*RedisChallengeStore)(nil)
)

func hashCode(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}

func codeMatches(c Challenge, code string) bool {
	provided := hashCode(code)
	return subtle.ConstantTimeCompare(c.CodeHash[:], provided[:]) == 1
}

func newChallenge(code string, now time.Time, ttl time.Duration) Challenge {
	return Challenge{
		CodeHash:  hashCode(code),
		ExpiresAt: now.Add(ttl).UnixMilli(),
	}
}

func encodeChallenge(c Challenge) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(challengeRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, c.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, c.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(c.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeChallenge(data []byte) (Challenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Challenge{}, err
	}
	if version != challengeRecordVersionV1 {
		return Challenge{}, errors.New("invalid challenge record version")
	}

	var c Challenge
	if err := binary.Read(reader, binary.BigEndian, &c.Attempts); err != nil {
		return Challenge{}, err
	}
	if err := binary.Read(reader, binary.BigEndian, &c.ExpiresAt); err != nil {
		return Challenge{}, err
	}
	if _, err := io.ReadFull(reader, c.CodeHash[:]); err != nil {
		return Challenge{}, err
	}
	if reader.Len() != 0 {
		return Challenge{}, errors.New("trailing bytes in challenge record")
	}
	return c, nil
}
