// Package validation содержит функции валидации входных данных.
package validation

import (
	"net/mail"
	"strings"
	"time"
)

// MinPasswordLength — минимальная длина пароля при регистрации.
const MinPasswordLength = 8

// IsValidEmail проверяет, что строка является адресом электронной почты.
func IsValidEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t") {
		return false
	}

	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}

	// запрещаем форму с отображаемым именем: "Name <a@b.com>"
	return addr.Address == email
}

// IsValidPassword проверяет минимальные требования к паролю.
func IsValidPassword(password string) bool {
	return len(password) >= MinPasswordLength
}

// IsValidBirthDate проверяет дату рождения в формате YYYY-MM-DD.
// Пустая строка допустима: поле необязательное.
func IsValidBirthDate(birthDate string) bool {
	if birthDate == "" {
		return true
	}

	d, err := time.Parse("2006-01-02", birthDate)
	if err != nil {
		return false
	}

	return d.Before(time.Now())
}
