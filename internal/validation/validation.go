// Package validation содержит функции валидации входных данных.
package validation

import (
	"net/mail"
	"unicode"
)

// IsValidEmail проверяет корректность адреса электронной почты.
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}

	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}

	return addr.Address == email
}

// IsValidDNI проверяет корректность перуанского DNI: только цифры, 8 знаков.
func IsValidDNI(dni string) bool {
	if len(dni) != 8 {
		return false
	}

	for _, ch := range dni {
		if !unicode.IsDigit(ch) {
			return false
		}
	}

	return true
}

// IsValidPhone проверяет корректность номера телефона: от 6 до 15 цифр,
// допускается ведущий знак "+".
func IsValidPhone(phone string) bool {
	if phone == "" {
		return false
	}

	digits := 0
	for i, ch := range phone {
		if ch == '+' && i == 0 {
			continue
		}
		if !unicode.IsDigit(ch) {
			return false
		}
		digits++
	}

	return digits >= 6 && digits <= 15
}
