package validation

import (
	"fmt"
	"unicode/utf8"
)

// MinPasswordLength: минимальная длина пароля.
const MinPasswordLength = 8

// ValidatePassword проверяет только длину пароля; состав символов не ограничиваем.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("пароль должен быть не менее %d символов", MinPasswordLength)
	}
	return nil
}
