// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"unicode"
)

// siretLength — длина номера SIRET (SIREN + NIC).
const siretLength = 14

// IsValidSIRET проверяет корректность номера SIRET: четырнадцать цифр
// и контрольная сумма по алгоритму Луна.
func IsValidSIRET(siret string) bool {
	if len(siret) != siretLength {
		return false
	}

	sum := 0
	double := false

	for i := len(siret) - 1; i >= 0; i-- {
		ch := rune(siret[i])
		if !unicode.IsDigit(ch) {
			return false
		}
		digit := int(ch - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}

// IsValidEmail выполняет минимальную проверку формы адреса электронной почты.
func IsValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	if strings.Contains(domain, "@") {
		return false
	}
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}
