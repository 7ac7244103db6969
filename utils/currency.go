package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatCurrencySAR formats an amount as Saudi Riyal for user-facing
// notification messages. Example: 1500.5 -> "1,500.50 ر.س"
func FormatCurrencySAR(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)

	// Split off the decimal part, then group the integer part by thousands.
	integerPart := fixed[:len(fixed)-3]
	decimalPart := fixed[len(fixed)-2:]

	negative := false
	if len(integerPart) > 0 && integerPart[0] == '-' {
		negative = true
		integerPart = integerPart[1:]
	}

	grouped := ""
	for i, digit := range integerPart {
		if i > 0 && (len(integerPart)-i)%3 == 0 {
			grouped += ","
		}
		grouped += string(digit)
	}

	if negative {
		grouped = "-" + grouped
	}

	return fmt.Sprintf("%s.%s ر.س", grouped, decimalPart)
}
