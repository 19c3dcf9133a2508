package dpd

import (
	"slices"
	"unicode/utf8"

	"github.com/tournevent/parcelbridge/pkg/courier"
)

const (
	refSegmentLen = 9
	refMaxLen     = 3 * refSegmentLen
)

// CreatePackage builds a package from the current sender and validates it.
// The reference is split into 9-character segments across ref1..ref3.
func (c *Client) CreatePackage(parcels []courier.Parcel, receiver courier.Party, payer string, services []courier.Service, ref string) (*courier.Package, error) {
	if len(parcels) == 0 {
		return nil, courier.NewValidationError(courier.CodeMissingData, "parcels are required")
	}
	if receiver.IsZero() {
		return nil, courier.NewValidationError(courier.CodeMissingData, "receiver is required")
	}
	sender := c.Sender()
	if sender.IsZero() {
		return nil, courier.NewValidationError(courier.CodeSenderNotSet, "sender is not set")
	}
	if utf8.RuneCountInString(ref) > refMaxLen {
		return nil, courier.NewValidationError(courier.CodeReferenceTooLong, "reference number is too long (max %d characters)", refMaxLen)
	}
	payerType, ok := courier.ParsePayerType(payer)
	if !ok {
		return nil, courier.NewValidationError(courier.CodeInvalidPayerType, "wrong payer type %q (SENDER or RECEIVER)", payer)
	}

	refs := SplitReference(ref)
	pkg := &courier.Package{
		Sender:    sender,
		Receiver:  receiver,
		PayerType: payerType,
		Parcels:   slices.Clone(parcels),
		Services:  courier.CloneServices(services),
		Ref1:      refs[0],
		Ref2:      refs[1],
		Ref3:      refs[2],
	}

	if err := courier.ValidatePackage(pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

// SplitReference splits ref into three segments of at most nine characters.
// Missing segments are empty; anything past the third segment is dropped.
func SplitReference(ref string) [3]string {
	var out [3]string
	runes := []rune(ref)
	for i := range out {
		start := i * refSegmentLen
		if start >= len(runes) {
			break
		}
		end := min(start+refSegmentLen, len(runes))
		out[i] = string(runes[start:end])
	}
	return out
}

// ============================================================================
// Conversion helpers
// ============================================================================

func partyToAPI(p courier.Party) Party {
	return Party{
		FID:         p.FID,
		Name:        p.Name,
		Company:     p.Company,
		Address:     p.Address,
		City:        p.City,
		PostalCode:  p.PostalCode,
		CountryCode: p.CountryCode,
		Phone:       p.Phone,
		Email:       p.Email,
	}
}

func parcelsToAPI(parcels []courier.Parcel) []Parcel {
	out := make([]Parcel, len(parcels))
	for i, p := range parcels {
		out[i] = Parcel(p)
	}
	return out
}

func servicesToAPI(services []courier.Service) Services {
	if len(services) == 0 {
		return nil
	}
	out := make(Services, len(services))
	for i, s := range courier.CloneServices(services) {
		out[i] = Service{Name: s.Name, Params: s.Params}
	}
	return out
}

func packageToAPI(p courier.Package) Package {
	return Package{
		Parcels:   parcelsToAPI(p.Parcels),
		PayerType: string(p.PayerType),
		Receiver:  partyToAPI(p.Receiver),
		Ref1:      p.Ref1,
		Ref2:      p.Ref2,
		Ref3:      p.Ref3,
		Sender:    partyToAPI(p.Sender),
		Services:  servicesToAPI(p.Services),
	}
}

func packagesFromAPI(in []PackageResult) []courier.RegisteredPackage {
	if len(in) == 0 {
		return nil
	}
	out := make([]courier.RegisteredPackage, len(in))
	for i, p := range in {
		out[i] = courier.RegisteredPackage{
			PackageID: p.PackageID,
			Status:    p.Status,
			Reference: p.Reference,
		}
		for _, pc := range p.Parcels {
			out[i].Parcels = append(out[i].Parcels, courier.RegisteredParcel(pc))
		}
	}
	return out
}
