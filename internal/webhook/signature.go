package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformedSignature = errors.New("malformed signature header")
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrSignatureExpired   = errors.New("signature timestamp outside tolerance")
)

// Sign returns the HeaderSignature value "t=<unix>,sha256=<hex>".
// The MAC covers "<unix>.<payload>" so a captured request cannot be
// replayed with a fresh timestamp.
func Sign(secret string, at time.Time, payload []byte) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",sha256=" + mac(secret, ts, payload)
}

// Verify checks a HeaderSignature value against payload. A tolerance of
// zero skips the timestamp check.
func Verify(secret string, payload []byte, header string, now time.Time, tolerance time.Duration) error {
	ts, sum, err := parseSignature(header)
	if err != nil {
		return err
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrMalformedSignature
	}
	if tolerance > 0 {
		if d := now.Sub(time.Unix(unix, 0)); d > tolerance || d < -tolerance {
			return ErrSignatureExpired
		}
	}

	if !hmac.Equal([]byte(sum), []byte(mac(secret, ts, payload))) {
		return ErrSignatureMismatch
	}
	return nil
}

func mac(secret, ts string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(ts))
	h.Write([]byte{'.'})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func parseSignature(header string) (ts, sum string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return "", "", ErrMalformedSignature
		}
		switch key {
		case "t":
			ts = value
		case "sha256":
			sum = value
		}
	}
	if ts == "" || sum == "" {
		return "", "", ErrMalformedSignature
	}
	return ts, sum, nil
}
