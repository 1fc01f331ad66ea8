package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/noirlabs/noir/internal/shipping"
)

// RateQuoter is the application-layer surface the rate endpoint consumes.
type RateQuoter interface {
	GetRates(ctx context.Context, params shipping.RateParams) ([]shipping.Rate, error)
}

// RateHandler serves shipping rate quotes.
type RateHandler struct {
	quotes RateQuoter
}

// NewRateHandler creates a rate handler.
func NewRateHandler(quotes RateQuoter) *RateHandler {
	return &RateHandler{quotes: quotes}
}

type addressRequest struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required,len=2"`
}

type packageRequest struct {
	WeightGrams int32 `json:"weight_grams" validate:"required,gt=0"`
	LengthCm    int32 `json:"length_cm,omitempty"`
	WidthCm     int32 `json:"width_cm,omitempty"`
	HeightCm    int32 `json:"height_cm,omitempty"`
}

type quoteRequest struct {
	Origin      addressRequest   `json:"origin" validate:"required"`
	Destination addressRequest   `json:"destination" validate:"required"`
	Packages    []packageRequest `json:"packages" validate:"required,min=1,dive"`
}

type rateResponse struct {
	Carrier               string    `json:"carrier"`
	ServiceName           string    `json:"service_name"`
	ServiceCode           string    `json:"service_code,omitempty"`
	Cost                  string    `json:"cost"`
	Currency              string    `json:"currency"`
	EstimatedDaysMin      int       `json:"estimated_days_min,omitempty"`
	EstimatedDaysMax      int       `json:"estimated_days_max,omitempty"`
	EstimatedDeliveryDate time.Time `json:"estimated_delivery_date,omitempty"`
}

func toAddress(a addressRequest) shipping.Address {
	return shipping.Address{
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// Quote handles POST /rates/quote.
func (h *RateHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	params := shipping.RateParams{
		OriginAddress:      toAddress(req.Origin),
		DestinationAddress: toAddress(req.Destination),
	}
	for _, pkg := range req.Packages {
		params.Packages = append(params.Packages, shipping.Package{
			WeightGrams: pkg.WeightGrams,
			LengthCm:    pkg.LengthCm,
			WidthCm:     pkg.WidthCm,
			HeightCm:    pkg.HeightCm,
		})
	}

	rates, err := h.quotes.GetRates(r.Context(), params)
	if err != nil {
		respondError(w, r, err)
		return
	}

	body := make([]rateResponse, len(rates))
	for i, rate := range rates {
		body[i] = rateResponse{
			Carrier:               rate.Carrier,
			ServiceName:           rate.ServiceName,
			ServiceCode:           rate.ServiceCode,
			Cost:                  rate.Cost.String(),
			Currency:              rate.Currency,
			EstimatedDaysMin:      rate.EstimatedDaysMin,
			EstimatedDaysMax:      rate.EstimatedDaysMax,
			EstimatedDeliveryDate: rate.EstimatedDeliveryDate,
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"rates": body})
}
