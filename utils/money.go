package utils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var amountCleanup = regexp.MustCompile(`[^0-9.,-]`)

// ToCents parses a user-entered amount ("1.234,56", "1234.56") into
// minor currency units. Returns 0 for unparseable input, matching the
// forgiving behavior of the mobile clients.
func ToCents(value string) int64 {
	s := amountCleanup.ReplaceAllString(value, "")
	s = strings.ReplaceAll(s, ",", ".")
	if i := strings.LastIndex(s, "."); i >= 0 {
		// keep only the last separator as the decimal point
		s = strings.ReplaceAll(s[:i], ".", "") + s[i:]
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(n * 100))
}

// FormatMoney renders minor units with thousands separators, e.g.
// FormatMoney("ARS", 1234567) == "ARS 12.345,67".
func FormatMoney(currency string, cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	intPart := strconv.FormatInt(cents/100, 10)
	dec := fmt.Sprintf("%02d", cents%100)

	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(r)
	}
	return fmt.Sprintf("%s %s%s,%s", currency, sign, sb.String(), dec)
}
