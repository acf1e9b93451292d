// redact — хелперы, чтобы секреты и сырые ответы апстримов не попадали в логи.
package redact

import "strings"

func Token() string  { return "[REDACTED_TOKEN]" }
func APIKey() string { return "[REDACTED_API_KEY]" }

// Snippet обрезает сырой текст апстрима до n рун для диагностики в логах.
func Snippet(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		return ""
	}

	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n]) + "…"
}

// ClientID маскирует идентификатор клиента, оставляя первые символы.
func ClientID(s string) string {
	if len(s) <= 4 {
		return "***"
	}

	return s[:4] + "***"
}
