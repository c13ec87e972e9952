/*
phone.go - Canonical phone identifiers

Every operation that accepts a phone identifier (deposit, withdrawal, both
sides of a transfer) must normalize it the same way before lookup, so the
same subscriber always resolves to the same account.
*/
package ledger

import "strings"

// DefaultCountryPrefix is the fixed prefix applied to bare numbers.
const DefaultCountryPrefix = "+221"

// CanonicalPhone normalizes a phone identifier to its canonical
// country-code-prefixed form:
//
//  1. Remove all whitespace.
//  2. Already starts with the fixed prefix: keep as-is.
//  3. Starts with "+" followed by a different prefix: replace the
//     leading "+" with the fixed prefix.
//  4. Otherwise: prepend the fixed prefix.
func CanonicalPhone(raw, prefix string) string {
	if prefix == "" {
		prefix = DefaultCountryPrefix
	}

	phone := strings.Join(strings.Fields(raw), "")

	if strings.HasPrefix(phone, prefix) {
		return phone
	}
	if strings.HasPrefix(phone, "+") {
		return prefix + phone[1:]
	}
	return prefix + phone
}
