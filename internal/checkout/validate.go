package checkout

import (
	"github.com/nikolayk812/storefront/internal/domain"
	"net/mail"
	"regexp"
	"strings"
)

var (
	phonePattern   = regexp.MustCompile(`^[0-9]{10}$`)
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// NormalizeAddress trims every field.
func NormalizeAddress(a domain.Address) domain.Address {
	return domain.Address{
		Name:    strings.TrimSpace(a.Name),
		Phone:   strings.TrimSpace(a.Phone),
		Email:   strings.TrimSpace(a.Email),
		Address: strings.TrimSpace(a.Address),
		City:    strings.TrimSpace(a.City),
		Pincode: strings.TrimSpace(a.Pincode),
	}
}

func ValidateAddress(a domain.Address) error {
	switch {
	case a.Name == "":
		return &ValidationError{Field: "name", Message: "is required"}
	case !phonePattern.MatchString(a.Phone):
		return &ValidationError{Field: "phone", Message: "must be 10 digits"}
	case a.Address == "":
		return &ValidationError{Field: "address", Message: "is required"}
	case a.City == "":
		return &ValidationError{Field: "city", Message: "is required"}
	case !pincodePattern.MatchString(a.Pincode):
		return &ValidationError{Field: "pincode", Message: "must be 6 digits"}
	}

	if a.Email != "" {
		if _, err := mail.ParseAddress(a.Email); err != nil {
			return &ValidationError{Field: "email", Message: "is not valid"}
		}
	}

	return nil
}
