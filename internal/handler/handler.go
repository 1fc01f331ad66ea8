// Package handler implements the JSON API: order lifecycle endpoints,
// inventory movements, and shipping rate quotes. Handlers decode and validate
// requests, call the service layer, and render responses; business rules live
// in the domain and services.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noirlabs/noir/internal/domain"
)

// validate is the shared request validator.
var validate = validator.New(validator.WithRequiredStructEnabled())

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// decodeJSON decodes and validates a request body into dst. Unknown fields
// are rejected.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return domain.Invalid("handler.decode", "malformed JSON request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domain.Errorf(domain.EINVALID, "handler.validate",
				"invalid field %q: failed %q validation", verrs[0].Field(), verrs[0].Tag())
		}
		return domain.Invalid("handler.validate", "request validation failed")
	}
	return nil
}

// parseAmount parses an optional decimal string field. Empty means zero.
func parseAmount(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Decimal{}, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, domain.Errorf(domain.EINVALID, "handler.parse_amount",
			"%s is not a valid decimal amount", field)
	}
	return amount, nil
}
