package models

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MsgInvalidItems       = "Invalid items data"
	MsgMissingCustomer    = "Missing customer information"
	MsgInvalidCustomer    = "Invalid customer information"
	MsgInvalidRequestBody = "Invalid request body"
)

// CheckoutValidationMessage maps a binding error on CheckoutRequest to the
// category message returned to the browser. It never echoes field values.
func CheckoutValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		// Items are validated first so a bad cart wins over bad contact details.
		for _, fe := range verrs {
			if strings.HasPrefix(fe.StructNamespace(), "CheckoutRequest.Items") {
				return MsgInvalidItems
			}
		}
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				return MsgMissingCustomer
			}
		}
		return MsgInvalidCustomer
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		switch {
		case strings.HasPrefix(field, "items"):
			return MsgInvalidItems
		case field == "customerEmail" || field == "customerName":
			return MsgInvalidCustomer
		}
	}
	return MsgInvalidRequestBody
}
