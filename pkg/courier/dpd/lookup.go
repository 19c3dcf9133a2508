package dpd

import (
	"context"
	"strings"

	"github.com/tournevent/parcelbridge/pkg/courier"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultCountry = "PL"

// NormalizePostCode strips spaces and hyphens and defaults the country to PL.
func NormalizePostCode(postCode, countryCode string) (string, string, error) {
	code := strings.NewReplacer(" ", "", "-", "").Replace(postCode)
	if code == "" {
		return "", "", courier.NewValidationError(courier.CodeMissingData, "postcode is required")
	}
	country := strings.ToUpper(strings.TrimSpace(countryCode))
	if country == "" {
		country = defaultCountry
	}
	return code, country, nil
}

// CheckPostCode verifies that DPD serves a postal code.
func (c *Client) CheckPostCode(ctx context.Context, postCode, countryCode string) (*courier.LookupResult, error) {
	method := c.method(opFindPostalCode)
	ctx, span := c.startSpan(ctx, "CheckPostCode")
	defer span.End()

	code, country, err := NormalizePostCode(postCode, countryCode)
	if err != nil {
		return nil, rejected(span, err)
	}
	span.SetAttributes(attribute.String("dpd.postal_code", code), attribute.String("dpd.country", country))

	c.logger.Ctx(ctx).Info("Checking DPD postal code",
		zap.String("postal_code", code),
		zap.String("country", country),
	)

	apiResp, err := c.apiClient.FindPostalCode(ctx, &PostalCodeRequest{
		PostalCode: Place{CountryCode: country, ZipCode: code},
		AuthData:   c.authData(),
	})
	if err != nil {
		return nil, c.gatewayFailure(ctx, span, method, err)
	}

	return &courier.LookupResult{
		Method:      method,
		Success:     apiResp.Status == courier.StatusOK,
		Status:      apiResp.Status,
		PostalCode:  code,
		CountryCode: country,
	}, nil
}

// CheckCourierAvailability lists the pickup windows DPD offers for a place.
func (c *Client) CheckCourierAvailability(ctx context.Context, postCode, countryCode string) (*courier.AvailabilityResult, error) {
	method := c.method(opCourierAvailability)
	ctx, span := c.startSpan(ctx, "CheckCourierAvailability")
	defer span.End()

	code, country, err := NormalizePostCode(postCode, countryCode)
	if err != nil {
		return nil, rejected(span, err)
	}
	span.SetAttributes(attribute.String("dpd.postal_code", code), attribute.String("dpd.country", country))

	c.logger.Ctx(ctx).Info("Checking DPD courier availability",
		zap.String("postal_code", code),
		zap.String("country", country),
	)

	apiResp, err := c.apiClient.GetCourierOrderAvailability(ctx, &CourierAvailabilityRequest{
		SenderPlace: Place{CountryCode: country, ZipCode: code},
		AuthData:    c.authData(),
	})
	if err != nil {
		return nil, c.gatewayFailure(ctx, span, method, err)
	}

	result := &courier.AvailabilityResult{
		LookupResult: courier.LookupResult{
			Method:      method,
			Success:     apiResp.Status == courier.StatusOK,
			Status:      apiResp.Status,
			PostalCode:  code,
			CountryCode: country,
		},
	}
	for _, r := range apiResp.Ranges {
		result.Windows = append(result.Windows, courier.PickupWindow(r))
	}
	return result, nil
}
