package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 12
	MinPasswordLen    = 8
	MaxPasswordLen    = 128
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
	DefaultSymbols    = `!@#$%^&*(),.?":{}|<>`
)

// PasswordValidationError lists every requirement the password failed.
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return "password must " + strings.Join(e.Errors, "; ")
}

// Common weak passwords to reject
var commonPasswords = map[string]bool{
	"password":     true,
	"12345678":     true,
	"qwerty":       true,
	"abc123":       true,
	"password123":  true,
	"password123!": true,
	"password1!":   true,
	"p@ssw0rd":     true,
	"p@ssword1":    true,
	"123456":       true,
	"admin":        true,
	"letmein":      true,
	"welcome":      true,
	"welcome1!":    true,
	"monkey":       true,
	"dragon":       true,
	"master":       true,
	"123123":       true,
	"passw0rd":     true,
	"shadow":       true,
	"sunshine":     true,
	"princess":     true,
	"starwars":     true,
	"football":     true,
	"trustno1":     true,
}

// PasswordPolicy is the strength check applied at registration and password
// change. The zero value is not usable; use DefaultPasswordPolicy.
type PasswordPolicy struct {
	MinLength        int
	MaxLength        int
	RequireMixedCase bool
	Symbols          string
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        MinPasswordLen,
		MaxLength:        MaxPasswordLen,
		RequireMixedCase: true,
		Symbols:          DefaultSymbols,
	}
}

// Validate returns a *PasswordValidationError when the password is weak.
func (p PasswordPolicy) Validate(password string) error {
	errs := make([]string, 0)

	length := len([]rune(password))
	if length < p.MinLength {
		errs = append(errs, fmt.Sprintf("be at least %d characters", p.MinLength))
	}
	if p.MaxLength > 0 && length > p.MaxLength {
		errs = append(errs, fmt.Sprintf("be at most %d characters", p.MaxLength))
	} else if len(password) > MaxPasswordBytes {
		errs = append(errs, fmt.Sprintf("be at most %d bytes", MaxPasswordBytes))
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(p.Symbols, r):
			hasSymbol = true
		}
	}

	if p.RequireMixedCase {
		if !hasUpper {
			errs = append(errs, "contain at least one uppercase letter")
		}
		if !hasLower {
			errs = append(errs, "contain at least one lowercase letter")
		}
	} else if !hasUpper && !hasLower {
		errs = append(errs, "contain at least one letter")
	}
	if !hasDigit {
		errs = append(errs, "contain at least one digit")
	}
	if !hasSymbol {
		errs = append(errs, fmt.Sprintf("contain at least one of %s", p.Symbols))
	}

	if commonPasswords[strings.ToLower(password)] {
		errs = append(errs, "not be a commonly used password")
	}

	if len(errs) > 0 {
		return &PasswordValidationError{Errors: errs}
	}
	return nil
}

// ValidatePassword checks password against the default policy.
func ValidatePassword(password string) error {
	return DefaultPasswordPolicy().Validate(password)
}

// Hasher wraps bcrypt with a fixed cost.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare returns nil when password matches hashed.
func (h *Hasher) Compare(hashed, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
}
