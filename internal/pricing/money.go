package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency используется, если валюта не задана.
const DefaultCurrency = "INR"

var hundred = decimal.NewFromInt(100)

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// Round2 округляет сумму до двух знаков после запятой (половина от нуля).
// Это единственное правило округления денег во всём модуле.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format форматирует сумму для отображения: ₹1,23,456.00 для INR,
// $1,234.00 для USD и "CODE 1,234.00" для прочих валют.
func Format(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	fixed := Round2(amount).StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	whole, frac, _ := strings.Cut(fixed, ".")
	if currency == "INR" {
		whole = groupIndian(whole)
	} else {
		whole = groupThousands(whole)
	}

	body := whole + "." + frac
	if symbol, ok := currencySymbols[currency]; ok {
		return sign + symbol + body
	}
	return sign + currency + " " + body
}

// groupIndian: последние три цифры, затем группы по две.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(append(groups, tail), ",")
}

func groupThousands(digits string) string {
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	return strings.Join(groups, ",")
}
