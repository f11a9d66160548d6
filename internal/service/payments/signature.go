package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/Mnunley1/gearboxe-reservations/internal/domain"
)

// VerifySignature checks a Stripe-style signature header of the form
// "t=<unix>,v1=<hex hmac>" where the mac covers "<unix>.<payload>". The
// timestamp must be within tolerance of now to stop replayed deliveries.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" || secret == "" {
		return domain.ErrUnverifiedSignature
	}

	var timestamp int64
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		pair := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch pair[0] {
		case "t":
			ts, err := strconv.ParseInt(pair[1], 10, 64)
			if err != nil {
				return domain.ErrUnverifiedSignature
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, pair[1])
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return domain.ErrUnverifiedSignature
	}

	sent := time.Unix(timestamp, 0)
	age := now.Sub(sent)
	if age < -tolerance || age > tolerance {
		return domain.ErrUnverifiedSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return domain.ErrUnverifiedSignature
}

// SignPayload produces the signature header for a payload.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}
