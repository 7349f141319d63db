package utils

import (
	"crypto/rand"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = 12

// Алфавит без 0/O/1/I, чтобы код читался однозначно при диктовке.
const inviteCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const inviteCodeLength = 8

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// GenerateInviteCode генерирует 8-символьный код приглашения.
// Уникальность обеспечивает не генератор, а unique-констрейнт в БД.
func GenerateInviteCode() (string, error) {
	randomBytes := make([]byte, inviteCodeLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	code := make([]byte, inviteCodeLength)
	for i, rb := range randomBytes {
		code[i] = inviteCodeCharset[int(rb)%len(inviteCodeCharset)]
	}
	return string(code), nil
}
