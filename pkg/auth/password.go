package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// bcryptSHA256Prefix marks hashes whose input was the hex SHA-256 of the
// password, which keeps passwords past bcrypt's 72-byte limit significant.
const bcryptSHA256Prefix = "bcrypt_sha256$"

func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}

// HashPassword returns the bcrypt-sha256 hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword(prehash(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return bcryptSHA256Prefix + string(h), nil
}

// CheckPassword reports whether password matches hash. Plain bcrypt hashes
// are still accepted.
func CheckPassword(hash, password string) bool {
	if h, ok := strings.CutPrefix(hash, bcryptSHA256Prefix); ok {
		return bcrypt.CompareHashAndPassword([]byte(h), prehash(password)) == nil
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword returns every strength rule password breaks. attrs are
// user attributes (username, e-mail) it must not resemble.
func ValidatePassword(password string, attrs map[string]string) []string {
	var errs []string

	for _, name := range []string{"username", "email"} {
		if v, ok := attrs[name]; ok && tooSimilar(password, v) {
			errs = append(errs, fmt.Sprintf("The password is too similar to the %s.", attrLabel(name)))
			break
		}
	}
	if len([]rune(password)) < MinPasswordLength {
		errs = append(errs, fmt.Sprintf("This password is too short. It must contain at least %d characters.", MinPasswordLength))
	}
	if _, ok := commonPasswords[strings.ToLower(strings.TrimSpace(password))]; ok {
		errs = append(errs, "This password is too common.")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		errs = append(errs, "This password is entirely numeric.")
	}
	return errs
}

func attrLabel(name string) string {
	if name == "email" {
		return "email address"
	}
	return name
}

// tooSimilar compares password with the attribute and each of its parts
// split on non-word characters.
func tooSimilar(password, attr string) bool {
	password = strings.ToLower(password)
	attr = strings.ToLower(attr)
	if password == "" || attr == "" {
		return false
	}
	parts := append([]string{attr}, strings.FieldsFunc(attr, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})...)
	for _, p := range parts {
		if len(p) < 3 {
			continue
		}
		if similarity(password, p) >= 0.7 {
			return true
		}
	}
	return false
}

// similarity is 2*M/T where M is the longest common subsequence length and
// T the combined length.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 0
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			switch {
			case ra[i-1] == rb[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return 2 * float64(prev[len(rb)]) / float64(len(ra)+len(rb))
}

var commonPasswords = func() map[string]struct{} {
	list := []string{
		"password", "password1", "password123", "passw0rd", "123456", "1234567", "12345678",
		"123456789", "1234567890", "qwerty", "qwerty123", "qwertyuiop", "abc123", "abcd1234",
		"111111", "000000", "letmein", "welcome", "welcome1", "iloveyou", "admin", "admin123",
		"monkey", "dragon", "master", "sunshine", "princess", "football", "baseball", "shadow",
		"superman", "michael", "trustno1", "starwars", "whatever", "computer", "freedom",
		"1q2w3e4r", "zaq12wsx", "changeme", "secret", "hello123", "login", "solo", "batman",
		"access", "mustang", "charlie", "donald", "987654321", "aa123456", "11111111",
	}
	m := make(map[string]struct{}, len(list))
	for _, p := range list {
		m[p] = struct{}{}
	}
	return m
}()
