package dpd

import (
	"context"

	"github.com/tournevent/parcelbridge/pkg/courier"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// GenerateDocuments produces a speed label (STOP_ON_FIRST_ERROR) or a pickup
// protocol (IGNORE_ERRORS) for the referenced packages. When ref carries both
// a session id and package ids, the package ids are sent.
func (c *Client) GenerateDocuments(ctx context.Context, kind courier.DocumentKind, ref courier.SessionRef, pickupAddress courier.Party, opts courier.DocumentOptions) (*courier.Document, error) {
	var (
		op     string
		policy courier.Policy
		call   func(context.Context, *DocumentRequest) (*DocumentResponse, error)
	)
	switch kind {
	case courier.DocumentLabel:
		op, policy, call = opSpeedLabels, courier.PolicyStopOnFirstError, c.apiClient.GenerateSpeedLabels
	case courier.DocumentProtocol:
		op, policy, call = opProtocol, courier.PolicyIgnoreErrors, c.apiClient.GenerateProtocol
	default:
		return nil, courier.NewValidationError(courier.CodeInvalidDocumentKind, "unknown document kind %q (LABEL or PROTOCOL)", kind).WithOp("GenerateDocuments")
	}
	method := c.method(op)

	ctx, span := c.startSpan(ctx, "GenerateDocuments", attribute.String("dpd.document_kind", string(kind)))
	defer span.End()

	ref, err := courier.NormalizeSessionRef(ref)
	if err != nil {
		return nil, rejected(span, err)
	}
	if pickupAddress.IsZero() {
		return nil, rejected(span, courier.NewValidationError(courier.CodeMissingData, "pickup address is required").WithOp(method))
	}
	opts, err = courier.NormalizeDocumentOptions(kind, opts)
	if err != nil {
		return nil, rejected(span, err)
	}

	session := Session{SessionType: string(ref.Type)}
	if len(ref.PackageIDs) > 0 {
		for _, id := range ref.PackageIDs {
			session.Packages = append(session.Packages, SessionPackage{PackageID: id})
		}
	} else {
		session.SessionID = ref.SessionID
	}

	c.logger.Ctx(ctx).Info("Generating DPD document",
		zap.String("method", method),
		zap.String("session_id", session.SessionID),
		zap.Int("package_count", len(session.Packages)),
		zap.String("file_format", string(opts.FileFormat)),
		zap.String("page_format", string(opts.PageFormat)),
	)

	apiResp, err := call(ctx, &DocumentRequest{
		ServicesParams: ServicesParams{
			PickupAddress: partyToAPI(pickupAddress),
			Policy:        policy,
			Session:       session,
		},
		OutputDocFormat:     string(opts.FileFormat),
		OutputDocPageFormat: string(opts.PageFormat),
		OutputLabelType:     string(opts.LabelType),
		AuthData:            c.authData(),
	})
	if err != nil {
		return nil, c.gatewayFailure(ctx, span, method, err)
	}

	doc := &courier.Document{
		Method:     method,
		Kind:       kind,
		Status:     apiResp.Status,
		FileFormat: opts.FileFormat,
		PageFormat: opts.PageFormat,
	}
	if apiResp.Status != courier.StatusOK {
		span.SetAttributes(attribute.String("dpd.status", apiResp.Status))
		return doc, nil
	}

	doc.Success = true
	doc.Data = apiResp.DocumentData
	if kind == courier.DocumentProtocol {
		doc.DocumentID = apiResp.DocumentID
		doc.Packages = packagesFromAPI(apiResp.Packages)
	}
	return doc, nil
}

// GenerateSpeedLabels renders speed labels for the referenced packages.
func (c *Client) GenerateSpeedLabels(ctx context.Context, ref courier.SessionRef, pickupAddress courier.Party, opts courier.DocumentOptions) (*courier.Document, error) {
	return c.GenerateDocuments(ctx, courier.DocumentLabel, ref, pickupAddress, opts)
}

// GenerateSpeedLabelsBySessionID renders labels for every package of a session.
func (c *Client) GenerateSpeedLabelsBySessionID(ctx context.Context, sessionID string, shipping courier.ShippingType, pickupAddress courier.Party, opts courier.DocumentOptions) (*courier.Document, error) {
	return c.GenerateSpeedLabels(ctx, courier.BySessionID(sessionID, shipping), pickupAddress, opts)
}

// GenerateSpeedLabelsByPackageIDs renders labels for the given packages.
func (c *Client) GenerateSpeedLabelsByPackageIDs(ctx context.Context, ids []string, shipping courier.ShippingType, pickupAddress courier.Party, opts courier.DocumentOptions) (*courier.Document, error) {
	return c.GenerateSpeedLabels(ctx, courier.ByPackageIDs(ids, shipping), pickupAddress, opts)
}

// GenerateSpeedLabelsForSession renders labels for the workflow's current session.
func (c *Client) GenerateSpeedLabelsForSession(ctx context.Context, shipping courier.ShippingType, pickupAddress courier.Party, opts courier.DocumentOptions) (*courier.Document, error) {
	ref, err := c.currentSession(shipping)
	if err != nil {
		return nil, err
	}
	return c.GenerateSpeedLabels(ctx, ref, pickupAddress, opts)
}

// GenerateProtocol renders the pickup protocol for the referenced packages.
// Protocols are always PDF on A4.
func (c *Client) GenerateProtocol(ctx context.Context, ref courier.SessionRef, pickupAddress courier.Party, opts courier.DocumentOptions) (*courier.Document, error) {
	return c.GenerateDocuments(ctx, courier.DocumentProtocol, ref, pickupAddress, opts)
}

// GenerateProtocolBySessionID renders the protocol for every package of a session.
func (c *Client) GenerateProtocolBySessionID(ctx context.Context, sessionID string, shipping courier.ShippingType, pickupAddress courier.Party) (*courier.Document, error) {
	return c.GenerateProtocol(ctx, courier.BySessionID(sessionID, shipping), pickupAddress, courier.DocumentOptions{})
}

// GenerateProtocolByPackageIDs renders the protocol for the given packages.
func (c *Client) GenerateProtocolByPackageIDs(ctx context.Context, ids []string, shipping courier.ShippingType, pickupAddress courier.Party) (*courier.Document, error) {
	return c.GenerateProtocol(ctx, courier.ByPackageIDs(ids, shipping), pickupAddress, courier.DocumentOptions{})
}

// GenerateProtocolForSession renders the protocol for the workflow's current session.
func (c *Client) GenerateProtocolForSession(ctx context.Context, shipping courier.ShippingType, pickupAddress courier.Party) (*courier.Document, error) {
	ref, err := c.currentSession(shipping)
	if err != nil {
		return nil, err
	}
	return c.GenerateProtocol(ctx, ref, pickupAddress, courier.DocumentOptions{})
}

func (c *Client) currentSession(shipping courier.ShippingType) (courier.SessionRef, error) {
	id := c.SessionID()
	if id == "" {
		return courier.SessionRef{}, courier.NewValidationError(courier.CodeNoSession, "no session: register packages first")
	}
	return courier.BySessionID(id, shipping), nil
}
