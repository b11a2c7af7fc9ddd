package common

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText NFKD 分解後只保留 ASCII，轉小寫並去除首尾空白
func NormalizeText(value string) string {
	if value == "" {
		return ""
	}
	decomposed := norm.NFKD.String(value)
	var sb strings.Builder
	sb.Grow(len(decomposed))
	for _, r := range decomposed {
		if r > unicode.MaxASCII {
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return strings.TrimSpace(sb.String())
}

// ContainsNormalized 以忽略大小寫與重音的方式判斷子字串
func ContainsNormalized(haystack, needle string) bool {
	n := NormalizeText(needle)
	if n == "" {
		return false
	}
	return strings.Contains(NormalizeText(haystack), n)
}
