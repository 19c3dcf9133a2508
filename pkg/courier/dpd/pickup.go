package dpd

import (
	"context"

	"github.com/tournevent/parcelbridge/pkg/courier"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PickupRequest orders a courier for the given protocols under the
// IGNORE_ERRORS policy. Only protocols the service accepted are returned;
// the call succeeds when at least one was accepted.
func (c *Client) PickupRequest(ctx context.Context, req courier.PickupRequest) (*courier.PickupResult, error) {
	method := c.method(opPickupCall)
	ctx, span := c.startSpan(ctx, "PickupRequest",
		attribute.Int("dpd.protocols", len(req.ProtocolIDs)),
		attribute.String("dpd.pickup_date", req.Date),
	)
	defer span.End()

	if err := courier.ValidatePickupRequest(&req); err != nil {
		return nil, rejected(span, err)
	}

	protocols := make([]ProtocolRef, len(req.ProtocolIDs))
	for i, id := range req.ProtocolIDs {
		protocols[i] = ProtocolRef{DocumentID: id}
	}

	c.logger.Ctx(ctx).Info("Ordering DPD pickup",
		zap.Strings("protocols", req.ProtocolIDs),
		zap.String("date", req.Date),
		zap.String("from", req.TimeFrom),
		zap.String("to", req.TimeTo),
	)

	apiResp, err := c.apiClient.PackagesPickupCall(ctx, &PickupCallRequest{
		PickupParams: PickupParams{
			Protocols:      protocols,
			PickupDate:     req.Date,
			PickupTimeFrom: req.TimeFrom,
			PickupTimeTo:   req.TimeTo,
			ContactInfo:    ContactInfo(req.Contact),
			PickupAddress:  partyToAPI(req.PickupAddress),
			Policy:         courier.PolicyIgnoreErrors,
		},
		AuthData: c.authData(),
	})
	if err != nil {
		return nil, c.gatewayFailure(ctx, span, method, err)
	}

	result := &courier.PickupResult{Method: method}
	for _, p := range apiResp.Protocols {
		if p.Status != courier.StatusOK {
			c.logger.Ctx(ctx).Warn("DPD rejected pickup protocol",
				zap.String("document_id", p.DocumentID),
				zap.String("status", p.Status),
			)
			continue
		}
		result.Protocols = append(result.Protocols, courier.PickupProtocol{
			DocumentID: p.DocumentID,
			Status:     p.Status,
		})
	}
	result.Success = len(result.Protocols) > 0
	return result, nil
}
