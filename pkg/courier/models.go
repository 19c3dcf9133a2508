package courier

import (
	"maps"
	"slices"
	"strings"
)

// PayerType designates which party pays for the shipment.
type PayerType string

const (
	PayerSender   PayerType = "SENDER"
	PayerReceiver PayerType = "RECEIVER"
)

// ParsePayerType normalizes a payer designation. An empty value means SENDER.
func ParsePayerType(s string) (PayerType, bool) {
	switch PayerType(strings.ToUpper(strings.TrimSpace(s))) {
	case "", PayerSender:
		return PayerSender, true
	case PayerReceiver:
		return PayerReceiver, true
	default:
		return "", false
	}
}

// Policy tells the carrier how to treat failures of individual items in a call.
type Policy string

const (
	PolicyAllOrNothing     Policy = "ALL_OR_NOTHING"
	PolicyStopOnFirstError Policy = "STOP_ON_FIRST_ERROR"
	PolicyIgnoreErrors     Policy = "IGNORE_ERRORS"
)

// ShippingType selects the domestic or international document flow.
type ShippingType string

const (
	ShippingDomestic      ShippingType = "DOMESTIC"
	ShippingInternational ShippingType = "INTERNATIONAL"
)

// FileFormat is the output format of generated documents.
type FileFormat string

const (
	FilePDF FileFormat = "PDF"
	FileZPL FileFormat = "ZPL"
	FileEPL FileFormat = "EPL"
)

// PageFormat is the page layout of generated documents.
type PageFormat string

const (
	PageA4         PageFormat = "A4"
	PageLblPrinter PageFormat = "LBL_PRINTER"
)

// LabelType is the speed label template.
type LabelType string

const (
	LabelBIC3          LabelType = "BIC3"
	LabelBIC3Extended1 LabelType = "BIC3_EXTENDED1"
)

// DocumentKind selects which document the generator produces.
type DocumentKind string

const (
	DocumentLabel    DocumentKind = "LABEL"
	DocumentProtocol DocumentKind = "PROTOCOL"
)

// StatusOK is the business status the carrier reports for a successful call.
const StatusOK = "OK"

// Party is a sender, receiver or pickup address.
type Party struct {
	FID         string `json:"fid,omitempty"`
	Name        string `json:"name,omitempty" validate:"required"`
	Company     string `json:"company,omitempty"`
	Address     string `json:"address,omitempty" validate:"required"`
	City        string `json:"city,omitempty" validate:"required"`
	PostalCode  string `json:"postalCode,omitempty" validate:"required"`
	CountryCode string `json:"countryCode,omitempty" validate:"required"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// IsZero reports whether no field of the party is set.
func (p Party) IsZero() bool {
	return p == Party{}
}

// Parcel is a single physical item of a package.
type Parcel struct {
	Weight        float64 `json:"weight" validate:"gt=0"`
	SizeX         float64 `json:"sizeX,omitempty"`
	SizeY         float64 `json:"sizeY,omitempty"`
	SizeZ         float64 `json:"sizeZ,omitempty"`
	Content       string  `json:"content,omitempty"`
	CustomerData1 string  `json:"customerData1,omitempty"`
	CustomerData2 string  `json:"customerData2,omitempty"`
	CustomerData3 string  `json:"customerData3,omitempty"`
	Reference     string  `json:"reference,omitempty"`
}

// Service is an additional carrier service such as declaredValue, cod or
// guarantee. Params may be empty for flag-like services (inpers, carryin).
type Service struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

// Package is one shipment: parcels travelling from a sender to a receiver.
type Package struct {
	Sender    Party     `json:"sender"`
	Receiver  Party     `json:"receiver"`
	PayerType PayerType `json:"payerType"`
	Parcels   []Parcel  `json:"parcels"`
	Services  []Service `json:"services,omitempty"`
	Ref1      string    `json:"ref1"`
	Ref2      string    `json:"ref2"`
	Ref3      string    `json:"ref3"`
}

// Clone returns a deep copy of the package.
func (p Package) Clone() Package {
	p.Parcels = slices.Clone(p.Parcels)
	p.Services = CloneServices(p.Services)
	return p
}

// CloneServices deep-copies services including their parameter maps.
func CloneServices(services []Service) []Service {
	if services == nil {
		return nil
	}
	out := make([]Service, len(services))
	for i, s := range services {
		out[i] = Service{Name: s.Name, Params: maps.Clone(s.Params)}
	}
	return out
}

// SessionRef identifies the packages a document is generated for: either a
// registration session or an explicit list of package ids.
type SessionRef struct {
	SessionID  string       `json:"sessionId,omitempty"`
	PackageIDs []string     `json:"packageIds,omitempty"`
	Type       ShippingType `json:"sessionType"`
}

// BySessionID references every package registered in a session.
func BySessionID(id string, t ShippingType) SessionRef {
	return SessionRef{SessionID: id, Type: t}
}

// ByPackageIDs references an explicit set of registered packages.
func ByPackageIDs(ids []string, t ShippingType) SessionRef {
	return SessionRef{PackageIDs: slices.Clone(ids), Type: t}
}

// IsZero reports whether the reference points at nothing.
func (r SessionRef) IsZero() bool {
	return r.SessionID == "" && len(r.PackageIDs) == 0
}

// DocumentOptions controls the output of document generation.
type DocumentOptions struct {
	FileFormat FileFormat `json:"fileFormat,omitempty"`
	PageFormat PageFormat `json:"pageFormat,omitempty"`
	LabelType  LabelType  `json:"labelType,omitempty"`
}

// ContactInfo is the person the courier contacts at pickup.
type ContactInfo struct {
	Name     string `json:"name,omitempty"`
	Company  string `json:"company,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Comments string `json:"comments,omitempty"`
}

// IsZero reports whether no contact field is set.
func (c ContactInfo) IsZero() bool {
	return c == ContactInfo{}
}

// PickupRequest asks the carrier to collect the packages listed in protocols.
type PickupRequest struct {
	ProtocolIDs   []string    `json:"protocolIds"`
	Date          string      `json:"pickupDate"`
	TimeFrom      string      `json:"pickupTimeFrom"`
	TimeTo        string      `json:"pickupTimeTo"`
	Contact       ContactInfo `json:"contactInfo"`
	PickupAddress Party       `json:"pickupAddress"`
}

// ============================================================================
// Results
// ============================================================================

// RegisteredParcel is a parcel number issued by the carrier.
type RegisteredParcel struct {
	ParcelID  string `json:"parcelId"`
	Status    string `json:"status,omitempty"`
	Reference string `json:"reference,omitempty"`
	Waybill   string `json:"waybill,omitempty"`
}

// RegisteredPackage is a package number issued by the carrier.
type RegisteredPackage struct {
	PackageID string             `json:"packageId"`
	Status    string             `json:"status,omitempty"`
	Reference string             `json:"reference,omitempty"`
	Parcels   []RegisteredParcel `json:"parcels,omitempty"`
}

// SendResult is the outcome of registering one or more packages.
// Success is false when the carrier answered with a non-OK status.
type SendResult struct {
	Method    string              `json:"method"`
	Success   bool                `json:"success"`
	Status    string              `json:"status"`
	SessionID string              `json:"sessionId,omitempty"`
	Sender    Party               `json:"sender"`
	Packages  []RegisteredPackage `json:"packages,omitempty"`
}

// PackageID returns the id of the first registered package, if any.
func (r *SendResult) PackageID() string {
	if len(r.Packages) == 0 {
		return ""
	}
	return r.Packages[0].PackageID
}

// OperationResult is the outcome of a call that returns only a status.
type OperationResult struct {
	Method  string `json:"method"`
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// Document is a generated speed label or pickup protocol.
type Document struct {
	Method     string              `json:"method"`
	Kind       DocumentKind        `json:"kind"`
	Success    bool                `json:"success"`
	Status     string              `json:"status"`
	DocumentID string              `json:"documentId,omitempty"`
	Data       []byte              `json:"data,omitempty"`
	FileFormat FileFormat          `json:"fileFormat"`
	PageFormat PageFormat          `json:"pageFormat"`
	Packages   []RegisteredPackage `json:"packages,omitempty"`
}

// PickupProtocol is a protocol the carrier accepted for pickup.
type PickupProtocol struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
}

// PickupResult is the outcome of a pickup call.
type PickupResult struct {
	Method    string           `json:"method"`
	Success   bool             `json:"success"`
	Protocols []PickupProtocol `json:"protocols,omitempty"`
}

// LookupResult is the outcome of a postal code check.
type LookupResult struct {
	Method      string `json:"method"`
	Success     bool   `json:"success"`
	Status      string `json:"status"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
}

// PickupWindow is a time range in which a courier can be ordered.
type PickupWindow struct {
	Offset   int    `json:"offset"`
	Range    string `json:"range,omitempty"`
	TimeFrom string `json:"timeFrom"`
	TimeTo   string `json:"timeTo"`
}

// AvailabilityResult is the outcome of a courier availability check.
type AvailabilityResult struct {
	LookupResult
	Windows []PickupWindow `json:"windows,omitempty"`
}
