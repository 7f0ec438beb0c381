package domain

import "strings"

// Profile field keys understood by handlers.
const (
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldAddress     = "address"
	FieldCity        = "city"
	FieldState       = "state"
	FieldZipCode     = "zip_code"
	FieldDateOfBirth = "date_of_birth"
)

// ProfileFields lists the recognized profile keys.
var ProfileFields = []string{
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhone,
	FieldAddress,
	FieldCity,
	FieldState,
	FieldZipCode,
	FieldDateOfBirth,
}

// Profile is the user's identifying information keyed by field name.
type Profile map[string]string

// Get returns the trimmed value for key.
func (p Profile) Get(key string) string {
	return strings.TrimSpace(p[key])
}

// FullName joins first and last name.
func (p Profile) FullName() string {
	return strings.TrimSpace(p.Get(FieldFirstName) + " " + p.Get(FieldLastName))
}

// IsEmpty reports whether no field carries a value.
func (p Profile) IsEmpty() bool {
	for _, value := range p {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

// Missing returns the keys among required that have no value.
func (p Profile) Missing(required ...string) []string {
	var missing []string
	for _, key := range required {
		if p.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
