package listing

import (
	"regexp"
	"strconv"
	"strings"
)

// SquareFeetPerAcre converts lot sizes reported in square feet.
const SquareFeetPerAcre = 43560.0

var (
	nonDigit  = regexp.MustCompile(`\D`)
	firstNum  = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?|\.\d+`)
	sqftUnits = []string{"sqft", "sq ft", "sq. ft", "square feet"}
)

// ParsePrice keeps only the digits of a displayed price ("$450,000" -> 450000).
func ParsePrice(text string) *int64 {
	digits := nonDigit.ReplaceAllString(text, "")
	if digits == "" {
		return nil
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseYearLastToken reads the year from the last whitespace token ("Built in 1998").
func ParseYearLastToken(text string) *int {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	return atoi(fields[len(fields)-1])
}

// ParseYearBuiltIn reads the year following a "Built in " prefix.
func ParseYearBuiltIn(text string) *int {
	return atoi(strings.TrimSpace(strings.Replace(text, "Built in ", "", 1)))
}

// ParseLotSize takes the first number in the text and converts square feet to acres.
func ParseLotSize(text string) *float64 {
	m := firstNum.FindString(text)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return nil
	}
	lower := strings.ToLower(text)
	for _, unit := range sqftUnits {
		if strings.Contains(lower, unit) {
			v /= SquareFeetPerAcre
			break
		}
	}
	return &v
}

func atoi(s string) *int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
