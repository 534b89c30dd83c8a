package certificate

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// VerificationCode derives a short code printed on the certificate so a
// holder can prove it was issued by this service. The same inputs and key
// always give the same code.
func VerificationCode(key []byte, name, title string, score int, issuedAt time.Time) string {
	h, err := blake2b.New256(key)
	if err != nil {
		// Keys longer than 64 bytes are rejected; fall back to hashing the key.
		sum := blake2b.Sum256(key)
		h, _ = blake2b.New256(sum[:])
	}
	for _, part := range []string{
		strings.TrimSpace(name),
		strings.TrimSpace(title),
		strconv.Itoa(score),
		issuedAt.UTC().Format(time.RFC3339),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}

	code := strings.ToUpper(hex.EncodeToString(h.Sum(nil))[:16])
	return "KIU-" + code[0:4] + "-" + code[4:8] + "-" + code[8:12] + "-" + code[12:16]
}

// Verify reports whether code matches the given certificate fields.
func Verify(key []byte, code, name, title string, score int, issuedAt time.Time) bool {
	return strings.EqualFold(code, VerificationCode(key, name, title, score, issuedAt))
}
