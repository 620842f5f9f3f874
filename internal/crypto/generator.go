package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numberChars    = "0123456789"
	symbolChars    = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	// MinPasswordLength leaves room for one character of every class.
	MinPasswordLength = 4
	// MaxPasswordLength stays under bcrypt's 72-byte input limit.
	MaxPasswordLength = 72
)

var ErrInvalidLength = errors.New("invalid length")

// GeneratePassword returns a random password of the given length with at
// least one lowercase, uppercase, digit and symbol character.
func GeneratePassword(length int) (string, error) {
	if length < MinPasswordLength || length > MaxPasswordLength {
		return "", fmt.Errorf("%w: password length must be in [%d, %d]", ErrInvalidLength, MinPasswordLength, MaxPasswordLength)
	}

	sets := []string{lowercaseChars, uppercaseChars, numberChars, symbolChars}
	pool := lowercaseChars + uppercaseChars + numberChars + symbolChars

	result := make([]byte, length)
	for i, charset := range sets {
		ch, err := randChar(charset)
		if err != nil {
			return "", err
		}
		result[i] = ch
	}
	for i := len(sets); i < length; i++ {
		ch, err := randChar(pool)
		if err != nil {
			return "", err
		}
		result[i] = ch
	}

	if err := secureShuffle(result); err != nil {
		return "", err
	}

	return string(result), nil
}

// RandomIdentifier returns n random lowercase letters and digits, safe for
// the local part of an email address.
func RandomIdentifier(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("%w: identifier length must be positive", ErrInvalidLength)
	}

	result := make([]byte, n)
	for i := range result {
		ch, err := randChar(lowercaseChars + numberChars)
		if err != nil {
			return "", err
		}
		result[i] = ch
	}

	return string(result), nil
}

func randChar(charset string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, err
	}
	return charset[n.Int64()], nil
}

// secureShuffle is a Fisher-Yates shuffle driven by crypto/rand.
func secureShuffle(data []byte) error {
	for i := len(data) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		data[i], data[j.Int64()] = data[j.Int64()], data[i]
	}
	return nil
}
