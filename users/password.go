package users

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8

	// MaxPasswordBytes is the most bcrypt will hash.
	MaxPasswordBytes = 72

	// DefaultProvisionalLength is the size of generated provisional secrets.
	DefaultProvisionalLength = 10

	// provisionalAlphabet leaves out 0/O/o, 1/l/I so secrets survive being read aloud.
	provisionalAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
)

// PasswordProblems lists every strength rule a password breaks. An empty result
// means the password is strong.
func PasswordProblems(password string) []string {
	if strings.TrimSpace(password) == "" {
		return []string{"password must not be blank"}
	}

	var problems []string
	if utf8.RuneCountInString(password) < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters long", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		problems = append(problems, fmt.Sprintf("password must be at most %d bytes long", MaxPasswordBytes))
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		problems = append(problems, "password must contain at least one uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "password must contain at least one lowercase letter")
	}
	if !hasNumber {
		problems = append(problems, "password must contain at least one number")
	}
	return problems
}

// ValidatePasswordStrength checks if password meets security requirements:
// - Not blank
// - At least 8 characters long
// - At most 72 bytes long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	problems := PasswordProblems(password)
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", apperrors.ErrWeakPassword, strings.Join(problems, "; "))
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares in constant time; a nil or empty hash never matches.
func CheckPasswordHash(password string, hash *string) bool {
	if hash == nil || *hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password))
	return err == nil
}

// GenerateProvisionalSecret draws length characters from crypto/rand.
func GenerateProvisionalSecret(length int) (string, error) {
	if length <= 0 {
		length = DefaultProvisionalLength
	}
	limit := big.NewInt(int64(len(provisionalAlphabet)))
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("[GenerateProvisionalSecret] rand.Int: %w", err)
		}
		sb.WriteByte(provisionalAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
