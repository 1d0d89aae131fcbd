package appointments

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

const (
	trackingAlphabet   = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	fallbackClinicCode = "CLN"
)

// TrackingCodePattern matches codes such as MIR-174321-7KQ2.
var TrackingCodePattern = regexp.MustCompile(`^[A-Z]{3}-[0-9]{6}-[0-9A-Z]{4}$`)

// GenerateTrackingCode builds the patient-facing code CLINIC-DDpppp-RRRR from
// the clinic name, the booking day, the last four phone digits and four random
// characters drawn from rnd. Codes are a lookup convenience, not a secret.
func GenerateTrackingCode(clinic, phone string, now time.Time, rnd *rand.Rand) string {
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = trackingAlphabet[rnd.Intn(len(trackingAlphabet))]
	}
	return fmt.Sprintf("%s-%02d%s-%s", clinicCode(clinic), now.Day(), phoneSuffix(phone), suffix)
}

func clinicCode(clinic string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(clinic) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
			if b.Len() == 3 {
				return b.String()
			}
		}
	}
	return fallbackClinicCode
}

func phoneSuffix(phone string) string {
	digits := DigitsOnly(phone)
	if len(digits) >= 4 {
		return digits[len(digits)-4:]
	}
	return strings.Repeat("0", 4-len(digits)) + digits
}

// DigitsOnly strips everything but 0-9.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
