package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

var fieldValidator = validator.New()

// TestOTPCode es el codigo fijo emitido cuando el modo de prueba esta activo.
const TestOTPCode = "000000"

// generateOTP devuelve un codigo de 6 digitos en [100000, 999999].
func generateOTP(testMode bool) (string, error) {
	if testMode {
		return TestOTPCode, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func hashOTP(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func matchOTP(code, hash string) bool {
	if code == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	return fieldValidator.Var(email, "required,email") == nil
}
