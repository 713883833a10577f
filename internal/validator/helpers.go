package validator

import (
	"net/url"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

func MinRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) >= n
}

func MaxRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}

func Between[T int | float64 | string](value, min, max T) bool {
	return value >= min && value <= max
}

func In[T comparable](value T, safelist ...T) bool {
	return slices.Contains(safelist, value)
}

func AllDigits(value string) bool {
	if value == "" {
		return false
	}

	for _, r := range value {
		if !unicode.IsDigit(r) {
			return false
		}
	}

	return true
}

func IsURL(value string) bool {
	u, err := url.ParseRequestURI(value)
	return err == nil && u.Scheme != "" && u.Host != ""
}
