package auth

import (
	"fmt"

	"github.com/famstack/famcoin/internal/common"
)

// ValidatePINFormat enforces the PIN rules for child profiles: exactly 4
// digits, not a run of consecutive ascending or descending digits (with
// wraparound, so 9012 and 0123 count), and not 4 repeated digits.
func ValidatePINFormat(pin string) error {
	if len(pin) != 4 || !isDigits(pin) {
		return fmt.Errorf("%w: PIN must be exactly 4 digits", common.ErrValidation)
	}
	if isRepeated(pin) {
		return fmt.Errorf("%w: PIN must not be a repeated digit", common.ErrValidation)
	}
	if isRun(pin, 1) || isRun(pin, -1) {
		return fmt.Errorf("%w: PIN must not be a sequential run", common.ErrValidation)
	}
	return nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isRepeated(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// isRun reports whether each digit is the previous one plus step, mod 10.
func isRun(s string, step int) bool {
	for i := 1; i < len(s); i++ {
		prev := int(s[i-1] - '0')
		cur := int(s[i] - '0')
		if cur != ((prev+step)%10+10)%10 {
			return false
		}
	}
	return true
}
