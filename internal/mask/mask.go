// Package mask redacts personal fields before they reach logs.
package mask

import "strings"

// Account masks a numeric account handle, keeping the first three and last
// four digits. Handles too short to mask come back fully starred.
func Account(account string) string {
	if len(account) < 8 {
		return strings.Repeat("*", len(account))
	}
	return account[:3] + "****" + account[len(account)-4:]
}

// Name masks a display name, keeping the first and last character.
func Name(name string) string {
	runes := []rune(name)
	switch len(runes) {
	case 0:
		return ""
	case 1:
		return "*"
	case 2:
		return string(runes[0]) + "*"
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
}
