package dpd

import (
	"context"
	"strconv"

	"github.com/tournevent/parcelbridge/pkg/courier"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SendPackage builds one package from the current sender and registers it.
func (c *Client) SendPackage(ctx context.Context, parcels []courier.Parcel, receiver courier.Party, payer string, services []courier.Service, ref string) (*courier.SendResult, error) {
	pkg, err := c.CreatePackage(parcels, receiver, payer, services, ref)
	if err != nil {
		return nil, err
	}
	return c.SendPackages(ctx, []courier.Package{*pkg})
}

// SendPackages registers a batch of packages in one call under the
// ALL_OR_NOTHING policy. On an OK status the returned session id becomes the
// workflow's session; any other status is reported with Success=false.
func (c *Client) SendPackages(ctx context.Context, packages []courier.Package) (*courier.SendResult, error) {
	method := c.method(opPackagesNumbers)
	ctx, span := c.startSpan(ctx, "SendPackages", attribute.Int("packages", len(packages)))
	defer span.End()

	if len(packages) == 0 {
		return nil, rejected(span, courier.NewValidationError(courier.CodeMissingData, "packages are required").WithOp(method))
	}

	// Validate the whole batch before anything goes out.
	apiPackages := make([]Package, len(packages))
	for i := range packages {
		pkg := packages[i].Clone()
		if err := courier.ValidatePackage(&pkg); err != nil {
			return nil, rejected(span, err)
		}
		apiPackages[i] = packageToAPI(pkg)
	}

	c.logger.Ctx(ctx).Info("Registering DPD packages",
		zap.String("method", method),
		zap.Int("package_count", len(packages)),
	)

	apiResp, err := c.apiClient.GeneratePackagesNumbers(ctx, &PackagesNumbersRequest{
		OpenUML:  OpenUML{Packages: apiPackages},
		Policy:   courier.PolicyAllOrNothing,
		AuthData: c.authData(),
		LangCode: c.config.LangCode,
	})
	if err != nil {
		return nil, c.gatewayFailure(ctx, span, method, err)
	}

	result := &courier.SendResult{
		Method: method,
		Status: apiResp.Status,
		Sender: packages[0].Sender,
	}
	if apiResp.Status != courier.StatusOK {
		c.logger.Ctx(ctx).Warn("DPD rejected packages",
			zap.String("method", method),
			zap.String("status", apiResp.Status),
		)
		span.SetAttributes(attribute.String("dpd.status", apiResp.Status))
		return result, nil
	}

	c.setSessionID(apiResp.SessionID)
	result.Success = true
	result.SessionID = apiResp.SessionID
	result.Packages = packagesFromAPI(apiResp.Packages)
	span.SetAttributes(attribute.String("dpd.session_id", apiResp.SessionID))
	return result, nil
}

// AddParcelsToPackage appends parcels to an already registered package.
func (c *Client) AddParcelsToPackage(ctx context.Context, packageID string, parcels []courier.Parcel) (*courier.OperationResult, error) {
	method := c.method(opAppendParcels)
	ctx, span := c.startSpan(ctx, "AddParcelsToPackage", attribute.String("dpd.package_id", packageID))
	defer span.End()

	id, err := strconv.ParseInt(packageID, 10, 64)
	if err != nil || id <= 0 {
		return nil, rejected(span, courier.NewValidationError(courier.CodeInvalidPackageID, "package id must be a positive integer, got %q", packageID).WithOp(method))
	}
	if len(parcels) == 0 {
		return nil, rejected(span, courier.NewValidationError(courier.CodeMissingData, "parcels are required").WithOp(method))
	}
	for i := range parcels {
		if parcels[i].Weight <= 0 {
			return nil, rejected(span, courier.NewValidationError(courier.CodeRequiredFields, "parcel %d requires the fields: weight", i).WithOp(method))
		}
	}

	c.logger.Ctx(ctx).Info("Appending parcels to DPD package",
		zap.Int64("package_id", id),
		zap.Int("parcel_count", len(parcels)),
	)

	apiResp, err := c.apiClient.AppendParcelsToPackage(ctx, &AppendParcelsRequest{
		ParcelsAppend: ParcelsAppend{
			SearchCriteria: PackageSearchCriteria{PackageID: id},
			Parcels:        parcelsToAPI(parcels),
		},
		AuthData: c.authData(),
	})
	if err != nil {
		return nil, c.gatewayFailure(ctx, span, method, err)
	}

	return &courier.OperationResult{
		Method:  method,
		Success: apiResp.Status == courier.StatusOK,
		Status:  apiResp.Status,
	}, nil
}
