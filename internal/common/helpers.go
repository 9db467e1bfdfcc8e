package common

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	EtherDecimals = 18 // 1 ether = 10^18 wei
	GweiDecimals  = 9  // 1 gwei = 10^9 wei
)

// WeiToEther converts wei to an ether string without float precision loss
func WeiToEther(wei *big.Int) string {
	return FormatWithDecimals(wei, EtherDecimals)
}

// EtherToWei converts an ether string to wei without float precision loss
func EtherToWei(ether string) (*big.Int, error) {
	return ParseWithDecimals(ether, EtherDecimals)
}

// WeiToGwei converts wei to a gwei string
func WeiToGwei(wei *big.Int) string {
	return FormatWithDecimals(wei, GweiDecimals)
}

// FormatWithDecimals converts an integer to a decimal string by inserting a decimal point.
// Example: FormatWithDecimals(24981836, 9) = "0.024981836"
func FormatWithDecimals(value *big.Int, decimals int) string {
	if value == nil {
		value = new(big.Int)
	}

	neg := value.Sign() < 0
	s := new(big.Int).Abs(value).String()

	// Pad with leading zeros if needed
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	// Insert decimal point
	pos := len(s) - decimals
	out := s[:pos]
	if decimals > 0 {
		out += "." + s[pos:]
	}
	if neg {
		out = "-" + out
	}
	return out
}

// ParseWithDecimals converts a decimal string to an integer by removing the decimal point.
// Digits beyond the given precision are truncated.
// Example: ParseWithDecimals("0.024981836", 9) = 24981836
func ParseWithDecimals(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty string")
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, fmt.Errorf("amount must be unsigned: %q", s)
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid decimal format")
	}

	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid decimal format")
	}

	// Pad or truncate fractional part to exact decimals
	if len(frac) < decimals {
		frac += strings.Repeat("0", decimals-len(frac))
	} else if len(frac) > decimals {
		frac = frac[:decimals]
	}

	combined := whole + frac
	for _, r := range combined {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("invalid digit %q in %q", r, s)
		}
	}

	n, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal format")
	}
	return n, nil
}

// CompareAmounts compares two decimal string amounts at the given precision.
// Returns: -1 if a < b, 0 if a == b, 1 if a > b, and error if parsing fails
func CompareAmounts(a, b string, decimals int) (int, error) {
	aVal, err := ParseWithDecimals(a, decimals)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount '%s': %w", a, err)
	}

	bVal, err := ParseWithDecimals(b, decimals)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount '%s': %w", b, err)
	}

	return aVal.Cmp(bVal), nil
}

// FiatValue prices wei at rate (fiat per ether, up to two decimals) and
// returns the result with two decimals, truncated.
func FiatValue(wei *big.Int, rate string) (string, error) {
	cents, err := ParseWithDecimals(rate, 2)
	if err != nil {
		return "", fmt.Errorf("invalid rate '%s': %w", rate, err)
	}
	if wei == nil {
		wei = new(big.Int)
	}

	v := new(big.Int).Mul(wei, cents)
	v.Quo(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(EtherDecimals), nil))
	return FormatWithDecimals(v, 2), nil
}
