// Package courier defines the shipment workflow model shared by courier
// integrations: parties, parcels, packages, documents, and the error taxonomy.
package courier

import (
	"context"
)

// Courier is a stateful shipment workflow bound to one carrier account.
// A workflow owns its sender and the session produced by its last
// successful registration; use one workflow per concurrent caller.
type Courier interface {
	// Name returns the carrier identifier (e.g., "dpd").
	Name() string

	// SetSender sets the sender used by packages built afterwards.
	SetSender(sender Party)

	// SessionID returns the session of the last successful registration.
	SessionID() string

	// CreatePackage builds and validates a package from the current sender.
	CreatePackage(parcels []Parcel, receiver Party, payer string, services []Service, ref string) (*Package, error)

	// SendPackages registers a batch of packages in a single call.
	SendPackages(ctx context.Context, packages []Package) (*SendResult, error)

	// AddParcelsToPackage appends parcels to an already registered package.
	AddParcelsToPackage(ctx context.Context, packageID string, parcels []Parcel) (*OperationResult, error)

	// GenerateDocuments produces a speed label or a pickup protocol.
	GenerateDocuments(ctx context.Context, kind DocumentKind, ref SessionRef, pickupAddress Party, opts DocumentOptions) (*Document, error)

	// PickupRequest orders a courier for the given protocols.
	PickupRequest(ctx context.Context, req PickupRequest) (*PickupResult, error)

	// CheckPostCode verifies that the carrier serves a postal code.
	CheckPostCode(ctx context.Context, postCode, countryCode string) (*LookupResult, error)

	// CheckCourierAvailability lists courier pickup windows for a postal code.
	CheckCourierAvailability(ctx context.Context, postCode, countryCode string) (*AvailabilityResult, error)
}

// Factory opens a fresh workflow with no sender and no session.
type Factory func() Courier
