package services

import (
	"crypto/rand"
	"math/big"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	MinPasswordLength = 12
	// bcrypt ignores or rejects input past 72 bytes.
	MaxPasswordBytes = 72
)

// PolicyResult is the outcome of CheckPasswordPolicy. Reasons lists every
// rule the password failed, in a stable order.
type PolicyResult struct {
	OK      bool
	Reasons []string
}

var passwordRules = []validation.Rule{
	validation.Required.Error("password is required"),
	validation.RuneLength(MinPasswordLength, 0).Error("must be at least 12 characters long"),
	validation.Length(0, MaxPasswordBytes).Error("must be at most 72 bytes long"),
	validation.Match(regexp.MustCompile(`[A-Z]`)).Error("must contain an uppercase letter"),
	validation.Match(regexp.MustCompile(`[a-z]`)).Error("must contain a lowercase letter"),
	validation.Match(regexp.MustCompile(`[0-9]`)).Error("must contain a digit"),
	validation.Match(regexp.MustCompile(`[^A-Za-z0-9]`)).Error("must contain a special character"),
}

// CheckPasswordPolicy applies the password policy used everywhere a new
// password is accepted: registration, reset, change and the operator CLI.
func CheckPasswordPolicy(password string) PolicyResult {
	var reasons []string
	for _, rule := range passwordRules {
		if err := validation.Validate(password, rule); err != nil {
			reasons = append(reasons, err.Error())
		}
	}
	return PolicyResult{OK: len(reasons) == 0, Reasons: reasons}
}

const (
	upperChars   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars   = "abcdefghijkmnpqrstuvwxyz"
	digitChars   = "23456789"
	specialChars = "!@#$%&*?-_"
)

// GenerateTemporaryPassword returns a random password of the given length
// that satisfies CheckPasswordPolicy.
func GenerateTemporaryPassword(length int) (string, error) {
	if length < MinPasswordLength {
		length = MinPasswordLength
	}
	classes := []string{upperChars, lowerChars, digitChars, specialChars}
	all := upperChars + lowerChars + digitChars + specialChars

	out := make([]byte, 0, length)
	for _, class := range classes {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	// Fisher-Yates so the guaranteed characters are not always up front.
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}
	return string(out), nil
}

func randomChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}
