// Package validation checks user input and, at startup, required services.
package validation

import (
	"encoding/hex"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/sha3"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 6

	MaxPostLength    = 500
	MaxCommentLength = 1000
	MaxMessageLength = 2000
	MaxBioLength     = 160
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	addressPattern  = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// FieldError names the input field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func fieldError(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func ValidateUsername(username string) error {
	n := len(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return fieldError("username", "username must be %d-%d characters", MinUsernameLength, MaxUsernameLength)
	}
	if !usernamePattern.MatchString(username) {
		return fieldError("username", "username may only contain letters, numbers and underscores")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fieldError("password", "password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return fieldError("email", "invalid email address")
	}
	return nil
}

// IsValidAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// ChecksumAddress returns the EIP-55 mixed-case form of a valid address.
func ChecksumAddress(address string) (string, error) {
	if !IsValidAddress(address) {
		return "", fieldError("address", "invalid address %q", address)
	}
	lower := strings.ToLower(address[2:])

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := hex.EncodeToString(h.Sum(nil))

	out := []byte(lower)
	for i, ch := range out {
		if ch >= 'a' && ch <= 'f' && digest[i] >= '8' {
			out[i] = ch - 'a' + 'A'
		}
	}
	return "0x" + string(out), nil
}

func ValidatePostContent(content string) error {
	return validateText("content", content, MaxPostLength)
}

func ValidateCommentContent(content string) error {
	return validateText("content", content, MaxCommentLength)
}

func ValidateMessageContent(content string) error {
	return validateText("content", content, MaxMessageLength)
}

func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return fieldError("bio", "bio must be at most %d characters", MaxBioLength)
	}
	return nil
}

// validateText counts runes, so emoji-heavy posts are measured the way users
// see them.
func validateText(field, s string, max int) error {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return fieldError(field, "%s is required", field)
	}
	if utf8.RuneCountInString(trimmed) > max {
		return fieldError(field, "%s must be at most %d characters", field, max)
	}
	return nil
}
