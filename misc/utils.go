package misc

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"
	"unsafe"
)

// 9 bytes of unixnano and 7 random bytes
func PseudoUUID() string {
	now := time.Now().UnixNano()
	randPart := make([]byte, 7)
	if _, err := rand.Read(randPart); err != nil {
		copy(randPart, (*(*[8]byte)(unsafe.Pointer(&now)))[:7])
	}
	return strconv.FormatInt(now, 10)[1:] + hex.EncodeToString(randPart)
}

func CreateToken(n int) []byte {
	tok := make([]byte, n)
	rand.Read(tok)
	return tok
}

func DoesIntersect(opts []string, tg []string) bool {
	for _, o := range opts {
		for _, t := range tg {
			if t == o {
				return true
			}
		}
	}

	return false
}

func TrimEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func TruncateFloat(f float64, digits int) float64 {
	pow := math.Pow10(digits)
	return math.Trunc(f*pow) / pow
}

// WithinLast reports whether the given unix timestamp falls inside the
// last X hours
func WithinLast(ts int32, hours int32) bool {
	return ts > int32(time.Now().Unix())-(hours*60*60)
}
