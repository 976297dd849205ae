package registration

import (
	"strings"
	"unicode"
)

// digitsOnly strips every non-digit
func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// IsValidCPF checks length and both check digits of a Brazilian CPF.
// Punctuation is ignored; repeated-digit numbers are rejected.
func IsValidCPF(cpf string) bool {
	d := digitsOnly(cpf)
	if len(d) != 11 {
		return false
	}
	if strings.Count(d, d[:1]) == 11 {
		return false
	}
	for _, r := range cpf {
		if !unicode.IsDigit(r) && r != '.' && r != '-' && r != ' ' {
			return false
		}
	}
	return cpfCheckDigit(d[:9], 10) == d[9] && cpfCheckDigit(d[:10], 11) == d[10]
}

func cpfCheckDigit(digits string, weight int) byte {
	sum := 0
	for i := 0; i < len(digits); i++ {
		sum += int(digits[i]-'0') * (weight - i)
	}
	r := (sum * 10) % 11 % 10
	return byte('0' + r)
}

// IsValidPhone accepts a Brazilian number with area code: 10 digits for
// landlines, 11 for mobiles.
func IsValidPhone(phone string) bool {
	d := digitsOnly(phone)
	if len(d) != 10 && len(d) != 11 {
		return false
	}
	for _, r := range phone {
		if !unicode.IsDigit(r) && !strings.ContainsRune("()- +", r) {
			return false
		}
	}
	return d[0] != '0'
}
