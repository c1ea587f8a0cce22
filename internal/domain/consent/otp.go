package consent

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"
)

const CodeLength = 6

// Policy bounds a code's validity.
type Policy struct {
	TTL         time.Duration
	MaxAttempts int
}

func DefaultPolicy() Policy {
	return Policy{TTL: 10 * time.Minute, MaxAttempts: 5}
}

// CodeGenerator returns a fresh numeric code.
type CodeGenerator func() (string, error)

// RandomCode draws each digit independently and uniformly from crypto/rand.
// Leading zeros are kept.
func RandomCode() (string, error) {
	return randomCode(rand.Reader)
}

func randomCode(r io.Reader) (string, error) {
	ten := big.NewInt(10)
	buf := make([]byte, CodeLength)
	for i := range buf {
		n, err := rand.Int(r, ten)
		if err != nil {
			return "", fmt.Errorf("failed to draw otp digit: %w", err)
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

// IsCodeShaped reports whether s looks like a code a member typed.
func IsCodeShaped(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 32)
	return err == nil
}

// Fingerprint ties an acceptance to who accepted which document version and
// when. It is an audit reference, not an integrity proof.
func Fingerprint(userID int64, documentVersion string, issuedAt time.Time) string {
	payload := fmt.Sprintf("%d|%s|%s", userID, documentVersion, issuedAt.UTC().Format(time.RFC3339Nano))
	sum := blake2b.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
