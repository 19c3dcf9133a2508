package dpd

import (
	"context"
	"encoding/xml"
	"fmt"
	"slices"

	"github.com/tournevent/parcelbridge/pkg/courier"
)

// APIClient defines the DPD operations the workflow depends on.
// The SOAP implementation talks to the live service; the mock backs tests
// and local development.
type APIClient interface {
	// GeneratePackagesNumbers registers packages and issues parcel numbers.
	GeneratePackagesNumbers(ctx context.Context, req *PackagesNumbersRequest) (*PackagesNumbersResponse, error)

	// AppendParcelsToPackage adds parcels to a registered package.
	AppendParcelsToPackage(ctx context.Context, req *AppendParcelsRequest) (*StatusResponse, error)

	// GenerateSpeedLabels renders speed labels for a session or package set.
	GenerateSpeedLabels(ctx context.Context, req *DocumentRequest) (*DocumentResponse, error)

	// GenerateProtocol renders the pickup protocol for a session or package set.
	GenerateProtocol(ctx context.Context, req *DocumentRequest) (*DocumentResponse, error)

	// PackagesPickupCall orders a courier for one or more protocols.
	PackagesPickupCall(ctx context.Context, req *PickupCallRequest) (*PickupCallResponse, error)

	// FindPostalCode checks that a postal code is served.
	FindPostalCode(ctx context.Context, req *PostalCodeRequest) (*StatusResponse, error)

	// GetCourierOrderAvailability lists courier pickup windows for a place.
	GetCourierOrderAvailability(ctx context.Context, req *CourierAvailabilityRequest) (*CourierAvailabilityResponse, error)
}

// ============================================================================
// API Request Types (element names match the DPD SOAP schema)
// ============================================================================

// AuthData is carried on every call.
type AuthData struct {
	MasterFID string `xml:"masterFid"`
	Login     string `xml:"login"`
	Password  string `xml:"password"`
}

// Party is a sender, receiver or pickup address.
type Party struct {
	FID         string `xml:"fid,omitempty"`
	Name        string `xml:"name,omitempty"`
	Company     string `xml:"company,omitempty"`
	Address     string `xml:"address,omitempty"`
	City        string `xml:"city,omitempty"`
	PostalCode  string `xml:"postalCode,omitempty"`
	CountryCode string `xml:"countryCode,omitempty"`
	Phone       string `xml:"phone,omitempty"`
	Email       string `xml:"email,omitempty"`
}

// Parcel is a single parcel of a package.
type Parcel struct {
	Weight        float64 `xml:"weight"`
	SizeX         float64 `xml:"sizeX,omitempty"`
	SizeY         float64 `xml:"sizeY,omitempty"`
	SizeZ         float64 `xml:"sizeZ,omitempty"`
	Content       string  `xml:"content,omitempty"`
	CustomerData1 string  `xml:"customerData1,omitempty"`
	CustomerData2 string  `xml:"customerData2,omitempty"`
	CustomerData3 string  `xml:"customerData3,omitempty"`
	Reference     string  `xml:"reference,omitempty"`
}

// Service is one additional service; each parameter becomes a child element.
type Service struct {
	Name   string
	Params map[string]string
}

// Services encodes as <services><cod><amount>..</amount>...</cod>...</services>.
type Services []Service

// MarshalXML implements xml.Marshaler.
func (s Services) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, svc := range s {
		el := xml.StartElement{Name: xml.Name{Local: svc.Name}}
		if err := e.EncodeToken(el); err != nil {
			return err
		}
		keys := make([]string, 0, len(svc.Params))
		for k := range svc.Params {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if err := e.EncodeElement(svc.Params[k], xml.StartElement{Name: xml.Name{Local: k}}); err != nil {
				return fmt.Errorf("encoding service %s: %w", svc.Name, err)
			}
		}
		if err := e.EncodeToken(el.End()); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// Package is one package of a registration call.
type Package struct {
	Parcels   []Parcel `xml:"parcels"`
	PayerType string   `xml:"payerType"`
	Receiver  Party    `xml:"receiver"`
	Ref1      string   `xml:"ref1,omitempty"`
	Ref2      string   `xml:"ref2,omitempty"`
	Ref3      string   `xml:"ref3,omitempty"`
	Sender    Party    `xml:"sender"`
	Services  Services `xml:"services,omitempty"`
}

// OpenUML wraps the packages of a registration call.
type OpenUML struct {
	Packages []Package `xml:"packages"`
}

// PackagesNumbersRequest is the generatePackagesNumbersV{n} payload.
type PackagesNumbersRequest struct {
	OpenUML  OpenUML        `xml:"openUMLV1"`
	Policy   courier.Policy `xml:"pkgNumsGenerationPolicyV1"`
	AuthData AuthData       `xml:"authDataV1"`
	LangCode string         `xml:"langCode,omitempty"`
}

// PackageSearchCriteria selects an existing package.
type PackageSearchCriteria struct {
	PackageID int64 `xml:"packageId"`
}

// ParcelsAppend describes parcels appended to a package.
type ParcelsAppend struct {
	SearchCriteria PackageSearchCriteria `xml:"packagesearchCriteria"`
	Parcels        []Parcel              `xml:"parcels"`
}

// AppendParcelsRequest is the appendParcelsToPackageV1 payload.
type AppendParcelsRequest struct {
	ParcelsAppend ParcelsAppend `xml:"parcelsAppend"`
	AuthData      AuthData      `xml:"authDataV1"`
}

// SessionPackage references a registered package by id.
type SessionPackage struct {
	PackageID string `xml:"packageId"`
}

// Session references packages either by session id or by package ids.
type Session struct {
	Packages    []SessionPackage `xml:"packages,omitempty"`
	SessionID   string           `xml:"sessionId,omitempty"`
	SessionType string           `xml:"sessionType"`
}

// ServicesParams is shared by label and protocol generation.
type ServicesParams struct {
	PickupAddress Party          `xml:"pickupAddress"`
	Policy        courier.Policy `xml:"policy"`
	Session       Session        `xml:"session"`
}

// DocumentRequest is the generateSpedLabelsV{n} and generateProtocolV1
// payload. OutputLabelType is only sent for labels.
type DocumentRequest struct {
	ServicesParams      ServicesParams `xml:"dpdServicesParamsV1"`
	OutputDocFormat     string         `xml:"outputDocFormatV1"`
	OutputDocPageFormat string         `xml:"outputDocPageFormatV1"`
	OutputLabelType     string         `xml:"outputLabelTypeV2,omitempty"`
	AuthData            AuthData       `xml:"authDataV1"`
}

// ProtocolRef references a protocol document by id.
type ProtocolRef struct {
	DocumentID string `xml:"documentId"`
}

// ContactInfo is the pickup contact.
type ContactInfo struct {
	Name     string `xml:"name,omitempty"`
	Company  string `xml:"company,omitempty"`
	Phone    string `xml:"phone,omitempty"`
	Email    string `xml:"email,omitempty"`
	Comments string `xml:"comments,omitempty"`
}

// PickupParams describes a courier order.
type PickupParams struct {
	Protocols      []ProtocolRef  `xml:"protocols"`
	PickupDate     string         `xml:"pickupDate"`
	PickupTimeFrom string         `xml:"pickupTimeFrom"`
	PickupTimeTo   string         `xml:"pickupTimeTo"`
	ContactInfo    ContactInfo    `xml:"contactInfo"`
	PickupAddress  Party          `xml:"pickupAddress"`
	Policy         courier.Policy `xml:"policy"`
}

// PickupCallRequest is the packagesPickupCallV1 payload.
type PickupCallRequest struct {
	PickupParams PickupParams `xml:"dpdPickupParamsV1"`
	AuthData     AuthData     `xml:"authDataV1"`
}

// Place is a country/zip pair.
type Place struct {
	CountryCode string `xml:"countryCode"`
	ZipCode     string `xml:"zipCode"`
}

// PostalCodeRequest is the findPostalCodeV1 payload.
type PostalCodeRequest struct {
	PostalCode Place    `xml:"postalCodeV1"`
	AuthData   AuthData `xml:"authDataV1"`
}

// CourierAvailabilityRequest is the getCourierOrderAvailabilityV1 payload.
type CourierAvailabilityRequest struct {
	SenderPlace Place    `xml:"senderPlaceV1"`
	AuthData    AuthData `xml:"authDataV1"`
}

// ============================================================================
// API Response Types (normalized across API versions)
// ============================================================================

// ParcelResult is a parcel number echoed by the service.
type ParcelResult struct {
	ParcelID  string
	Status    string
	Reference string
	Waybill   string
}

// PackageResult is a package number echoed by the service.
type PackageResult struct {
	PackageID string
	Status    string
	Reference string
	Parcels   []ParcelResult
}

// PackagesNumbersResponse is the generatePackagesNumbers result.
type PackagesNumbersResponse struct {
	Status    string
	SessionID string
	Packages  []PackageResult
}

// StatusResponse is the result of calls that only report a status.
type StatusResponse struct {
	Status string
}

// DocumentResponse is the label or protocol result.
type DocumentResponse struct {
	Status       string
	DocumentID   string
	DocumentData []byte
	Packages     []PackageResult
}

// ProtocolResult is the per-protocol status of a pickup call.
type ProtocolResult struct {
	DocumentID string
	Status     string
}

// PickupCallResponse is the packagesPickupCall result. Protocols is nil when
// the service returned no protocol list at all.
type PickupCallResponse struct {
	Protocols []ProtocolResult
}

// AvailabilityRange is a courier pickup window.
type AvailabilityRange struct {
	Offset   int
	Range    string
	TimeFrom string
	TimeTo   string
}

// CourierAvailabilityResponse is the getCourierOrderAvailability result.
type CourierAvailabilityResponse struct {
	Status string
	Ranges []AvailabilityRange
}

// APIError represents a fault reported by the DPD service.
type APIError struct {
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Description
}

// CallError is a failed remote call together with the request that was sent.
type CallError struct {
	Operation string
	Request   []byte
	Err       error
}

func (e *CallError) Error() string {
	return e.Operation + ": " + e.Err.Error()
}

// Unwrap returns the underlying failure.
func (e *CallError) Unwrap() error {
	return e.Err
}
