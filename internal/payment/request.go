package payment

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PaymentRequest is the typed, validated body of a create-payment-intent call.
// Amounts are expressed in the currency's minor units.
type PaymentRequest struct {
	Name                string          `json:"name"`
	Email               string          `json:"email" validate:"required"`
	Amount              int64           `json:"amount" validate:"required,gt=0"`
	Currency            string          `json:"currency" validate:"required"`
	RequestThreeDSecure string          `json:"request_three_d_secure" validate:"omitempty,oneof=automatic any challenge"`
	PaymentMethodTypes  []string        `json:"payment_method_types"`
	Items               json.RawMessage `json:"items"` // accepted for client compatibility, unused
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// MissingFields validates the request and returns the json names of fields
// that are absent or invalid. An empty result means the request is valid.
func (p PaymentRequest) MissingFields() []string {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"body"}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}
