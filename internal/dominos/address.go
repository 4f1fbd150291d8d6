package dominos

import (
	"strings"
	"unicode"
)

// Address is a loosely parsed customer location used for store lookup
type Address struct {
	Street     string
	City       string
	Region     string
	PostalCode string
}

// ParseAddress splits free-form input into address parts.
//
//	"street, city, region zip" -> all parts
//	"city, region"             -> city and region
//	"95608"                    -> postal code
//	"Sacramento"               -> city
func ParseAddress(s string) Address {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var addr Address
	switch {
	case len(parts) >= 3:
		addr.Street = parts[0]
		addr.City = parts[1]
		addr.Region, addr.PostalCode = splitRegionZip(strings.Join(parts[2:], " "))
	case len(parts) == 2:
		addr.City = parts[0]
		addr.Region, addr.PostalCode = splitRegionZip(parts[1])
	default:
		if isPostalCode(parts[0]) {
			addr.PostalCode = parts[0]
		} else {
			addr.City = parts[0]
		}
	}
	return addr
}

// LocatorLines returns the two query lines the store locator expects.
func (a Address) LocatorLines() (string, string) {
	second := strings.TrimSpace(strings.Join(nonEmpty(
		strings.TrimSpace(strings.Join(nonEmpty(a.City, a.Region), ", ")),
		a.PostalCode,
	), " "))
	return a.Street, second
}

func splitRegionZip(s string) (string, string) {
	fields := strings.Fields(s)
	if len(fields) > 1 && isPostalCode(fields[len(fields)-1]) {
		return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
	}
	if len(fields) == 1 && isPostalCode(fields[0]) {
		return "", fields[0]
	}
	return strings.TrimSpace(s), ""
}

func isPostalCode(s string) bool {
	digits := strings.ReplaceAll(s, "-", "")
	if len(digits) != 5 && len(digits) != 9 {
		return false
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
