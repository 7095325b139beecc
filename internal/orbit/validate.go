package orbit

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/Bidon15/orbit-setup/internal/pkg/errors"
)

var validate = validator.New()

// IsAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsAddress(s string) bool {
	return validate.Var(s, "required,eth_addr") == nil
}

// AssertValidAddress returns a validation error naming field unless value is
// a well-formed address.
func AssertValidAddress(field, value string) error {
	if !IsAddress(value) {
		return apperrors.NewValidationError(field, fmt.Sprintf("%q is not a valid address", value))
	}
	return nil
}

// AssertValidAddressList requires a non-empty list of well-formed addresses.
func AssertValidAddressList(field string, values []string) error {
	if len(values) == 0 {
		return apperrors.NewValidationError(field, "at least one address is required")
	}
	for i, v := range values {
		if !IsAddress(v) {
			return apperrors.NewValidationError(field, fmt.Sprintf("entry %d: %q is not a valid address", i, v))
		}
	}
	return nil
}

func parseAddress(field, value string) (common.Address, error) {
	if err := AssertValidAddress(field, value); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(value), nil
}

func parseAddresses(field string, values []string) ([]common.Address, error) {
	if err := AssertValidAddressList(field, values); err != nil {
		return nil, err
	}
	out := make([]common.Address, len(values))
	for i, v := range values {
		out[i] = common.HexToAddress(v)
	}
	return out, nil
}
