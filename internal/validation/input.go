package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/ecorelais/delivery-backend/internal/models"
)

// Константы валидации
const (
	MaxEmailLength   = 254
	MaxNameLength    = 100
	MaxPhoneLength   = 32
	MaxMessageLength = 2000
	MaxReasonLength  = 2000
)

var (
	validate   = validator.New()
	phoneRegex = regexp.MustCompile(`^\+?[0-9 ()-]{5,}$`)
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет синтаксис адреса (RFC 5322) и требует домен с точкой:
// адреса вида user@localhost для регистрации не подходят.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email обязателен")
	}
	if utf8.RuneCountInString(email) > MaxEmailLength || validate.Var(email, "email") != nil {
		return fmt.Errorf("некорректный формат email")
	}
	domain := email[strings.LastIndexByte(email, '@')+1:]
	if !strings.Contains(strings.Trim(domain, "."), ".") {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateName проверяет имя или фамилию: непустые и не длиннее MaxNameLength.
func ValidateName(fieldName, value string) error {
	if err := ValidateNonEmpty(fieldName, value); err != nil {
		return err
	}
	return ValidateLength(fieldName, strings.TrimSpace(value), 0, MaxNameLength)
}

func ValidateRole(role string) error {
	switch role {
	case models.RoleClient, models.RolePartner, models.RoleAdmin:
		return nil
	}
	return fmt.Errorf("роль должна быть одной из: client, partner, admin")
}

func ValidatePhone(phone string) error {
	if err := ValidateLength("телефон", phone, 0, MaxPhoneLength); err != nil {
		return err
	}
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("некорректный формат телефона")
	}
	return nil
}

// ValidateLatitude и ValidateLongitude проверяют диапазоны координат.
func ValidateLatitude(lat float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("широта должна быть в диапазоне [-90, 90]")
	}
	return nil
}

func ValidateLongitude(lng float64) error {
	if lng < -180 || lng > 180 {
		return fmt.Errorf("долгота должна быть в диапазоне [-180, 180]")
	}
	return nil
}

// ValidateMessageContent проверяет текст уведомления.
func ValidateMessageContent(content string) error {
	if err := ValidateNonEmpty("сообщение", content); err != nil {
		return err
	}
	return ValidateLength("сообщение", content, 0, MaxMessageLength)
}
