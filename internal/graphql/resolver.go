package graphql

import (
	"context"
	"time"

	"github.com/tournevent/parcelbridge/internal/telemetry"
	"github.com/tournevent/parcelbridge/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Resolver is the root resolver for the GraphQL schema.
// It holds dependencies needed by all resolvers.
type Resolver struct {
	Workflows courier.Factory
	Logger    *otelzap.Logger
	Metrics   *telemetry.Metrics
}

// NewResolver creates a new resolver with the given dependencies. Every
// resolved field opens its own workflow from workflows.
func NewResolver(workflows courier.Factory, logger *otelzap.Logger, metrics *telemetry.Metrics) *Resolver {
	return &Resolver{
		Workflows: workflows,
		Logger:    logger,
		Metrics:   metrics,
	}
}

// Query returns the query resolver.
func (r *Resolver) Query() *QueryResolver { return &QueryResolver{r} }

// Mutation returns the mutation resolver.
func (r *Resolver) Mutation() *MutationResolver { return &MutationResolver{r} }

// observe records the outcome of one operation.
func (r *Resolver) observe(ctx context.Context, op string, start time.Time, success bool, err error) {
	status := "ok"
	switch {
	case err != nil:
		status = "error"
		kind := errorKind(err)
		r.Logger.Ctx(ctx).Warn("Operation failed",
			zap.String("operation", op),
			zap.String("kind", kind),
			zap.Error(err),
		)
		if r.Metrics != nil {
			r.Metrics.RecordError(op, kind)
		}
	case !success:
		status = "rejected"
	}
	if r.Metrics != nil {
		r.Metrics.RecordOperation(op, status, time.Since(start).Seconds())
	}
}

// QueryResolver resolves the fields of the Query type.
type QueryResolver struct{ *Resolver }

// Health reports service liveness.
func (r *QueryResolver) Health(ctx context.Context) (string, error) {
	return "ok", nil
}

// CheckPostCode verifies that DPD serves a postal code.
func (r *QueryResolver) CheckPostCode(ctx context.Context, postCode, countryCode string) (result *courier.LookupResult, err error) {
	defer func(start time.Time) {
		r.observe(ctx, "checkPostCode", start, result != nil && result.Success, err)
	}(time.Now())

	return r.Workflows().CheckPostCode(ctx, postCode, countryCode)
}

// CheckCourierAvailability lists pickup windows for a postal code.
func (r *QueryResolver) CheckCourierAvailability(ctx context.Context, postCode, countryCode string) (result *courier.AvailabilityResult, err error) {
	defer func(start time.Time) {
		r.observe(ctx, "checkCourierAvailability", start, result != nil && result.Success, err)
	}(time.Now())

	return r.Workflows().CheckCourierAvailability(ctx, postCode, countryCode)
}

// MutationResolver resolves the fields of the Mutation type.
type MutationResolver struct{ *Resolver }

// SendPackages builds every package from the input sender and registers
// them in one call.
func (r *MutationResolver) SendPackages(ctx context.Context, input SendPackagesInput) (result *courier.SendResult, err error) {
	defer func(start time.Time) {
		r.observe(ctx, "sendPackages", start, result != nil && result.Success, err)
	}(time.Now())

	wf := r.Workflows()
	wf.SetSender(input.Sender)

	packages := make([]courier.Package, 0, len(input.Packages))
	for _, p := range input.Packages {
		pkg, err := wf.CreatePackage(p.Parcels, p.Receiver, p.PayerType, servicesInputToModel(p.Services), p.Reference)
		if err != nil {
			return nil, err
		}
		packages = append(packages, *pkg)
	}

	r.Logger.Ctx(ctx).Info("Registering packages", zap.Int("packages", len(packages)))
	return wf.SendPackages(ctx, packages)
}

// AddParcels appends parcels to a registered package.
func (r *MutationResolver) AddParcels(ctx context.Context, packageID string, parcels []courier.Parcel) (result *courier.OperationResult, err error) {
	defer func(start time.Time) {
		r.observe(ctx, "addParcels", start, result != nil && result.Success, err)
	}(time.Now())

	return r.Workflows().AddParcelsToPackage(ctx, packageID, parcels)
}

// GenerateSpeedLabels renders labels for a session or a set of packages.
func (r *MutationResolver) GenerateSpeedLabels(ctx context.Context, input DocumentInput) (*courier.Document, error) {
	return r.generate(ctx, "generateSpeedLabels", courier.DocumentLabel, input)
}

// GenerateProtocol renders the handover protocol for a session or a set of
// packages.
func (r *MutationResolver) GenerateProtocol(ctx context.Context, input DocumentInput) (*courier.Document, error) {
	return r.generate(ctx, "generateProtocol", courier.DocumentProtocol, input)
}

func (r *MutationResolver) generate(ctx context.Context, op string, kind courier.DocumentKind, input DocumentInput) (result *courier.Document, err error) {
	defer func(start time.Time) {
		r.observe(ctx, op, start, result != nil && result.Success, err)
	}(time.Now())

	ref, opts := documentInputToModel(input)
	return r.Workflows().GenerateDocuments(ctx, kind, ref, input.PickupAddress, opts)
}

// PickupRequest orders a courier for the given protocols.
func (r *MutationResolver) PickupRequest(ctx context.Context, input PickupInput) (result *courier.PickupResult, err error) {
	defer func(start time.Time) {
		r.observe(ctx, "pickupRequest", start, result != nil && result.Success, err)
	}(time.Now())

	return r.Workflows().PickupRequest(ctx, input)
}
