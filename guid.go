package registry

import "github.com/google/uuid"

// GenerateGUID mints a fresh person or machine guid: 36 characters of
// lowercase hex with dashes at positions 8, 13, 18 and 23.
func GenerateGUID() string {
	return uuid.NewString()
}

// ValidGUID reports whether s is a well formed guid. The registry never
// normalizes guids; uppercase hex is rejected so that map keys stay
// canonical.
func ValidGUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch i {
		case 8, 13, 18, 23:
			if c != '-' {
				return false
			}
		default:
			if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
				return false
			}
		}
	}
	return true
}
