package dpd

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/parcelbridge/pkg/courier"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnGeneratePackagesNumbers     func(ctx context.Context, req *PackagesNumbersRequest) (*PackagesNumbersResponse, error)
	OnAppendParcelsToPackage      func(ctx context.Context, req *AppendParcelsRequest) (*StatusResponse, error)
	OnGenerateSpeedLabels         func(ctx context.Context, req *DocumentRequest) (*DocumentResponse, error)
	OnGenerateProtocol            func(ctx context.Context, req *DocumentRequest) (*DocumentResponse, error)
	OnPackagesPickupCall          func(ctx context.Context, req *PickupCallRequest) (*PickupCallResponse, error)
	OnFindPostalCode              func(ctx context.Context, req *PostalCodeRequest) (*StatusResponse, error)
	OnGetCourierOrderAvailability func(ctx context.Context, req *CourierAvailabilityRequest) (*CourierAvailabilityResponse, error)

	seq atomic.Int64
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// nextID issues numeric ids the way the service does.
func (m *MockAPIClient) nextID() string {
	return strconv.FormatInt(10000000+m.seq.Add(1), 10)
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return &APIError{Code: "MOCK_ERROR", Description: "Simulated API error"}
	}
	return nil
}

// GeneratePackagesNumbers registers every package and returns OK.
func (m *MockAPIClient) GeneratePackagesNumbers(ctx context.Context, req *PackagesNumbersRequest) (*PackagesNumbersResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGeneratePackagesNumbers != nil {
		return m.OnGeneratePackagesNumbers(ctx, req)
	}

	resp := &PackagesNumbersResponse{Status: courier.StatusOK, SessionID: m.nextID()}
	for _, pkg := range req.OpenUML.Packages {
		result := PackageResult{PackageID: m.nextID(), Status: courier.StatusOK, Reference: pkg.Ref1}
		for _, p := range pkg.Parcels {
			id := m.nextID()
			result.Parcels = append(result.Parcels, ParcelResult{
				ParcelID:  id,
				Status:    courier.StatusOK,
				Reference: p.Reference,
				Waybill:   "00000" + id + "U",
			})
		}
		resp.Packages = append(resp.Packages, result)
	}
	return resp, nil
}

// AppendParcelsToPackage accepts the parcels.
func (m *MockAPIClient) AppendParcelsToPackage(ctx context.Context, req *AppendParcelsRequest) (*StatusResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnAppendParcelsToPackage != nil {
		return m.OnAppendParcelsToPackage(ctx, req)
	}
	return &StatusResponse{Status: courier.StatusOK}, nil
}

// GenerateSpeedLabels returns placeholder label data.
func (m *MockAPIClient) GenerateSpeedLabels(ctx context.Context, req *DocumentRequest) (*DocumentResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGenerateSpeedLabels != nil {
		return m.OnGenerateSpeedLabels(ctx, req)
	}
	return &DocumentResponse{
		Status:       courier.StatusOK,
		DocumentData: mockDocument(req.OutputDocFormat, "label"),
		Packages:     mockSessionPackages(req),
	}, nil
}

// GenerateProtocol returns a placeholder protocol with a fresh document id.
func (m *MockAPIClient) GenerateProtocol(ctx context.Context, req *DocumentRequest) (*DocumentResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGenerateProtocol != nil {
		return m.OnGenerateProtocol(ctx, req)
	}
	return &DocumentResponse{
		Status:       courier.StatusOK,
		DocumentID:   "DOC-" + uuid.New().String()[:8],
		DocumentData: mockDocument(req.OutputDocFormat, "protocol"),
		Packages:     mockSessionPackages(req),
	}, nil
}

// PackagesPickupCall accepts every protocol.
func (m *MockAPIClient) PackagesPickupCall(ctx context.Context, req *PickupCallRequest) (*PickupCallResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnPackagesPickupCall != nil {
		return m.OnPackagesPickupCall(ctx, req)
	}
	resp := &PickupCallResponse{Protocols: []ProtocolResult{}}
	for _, p := range req.PickupParams.Protocols {
		resp.Protocols = append(resp.Protocols, ProtocolResult{DocumentID: p.DocumentID, Status: courier.StatusOK})
	}
	return resp, nil
}

// FindPostalCode reports every postal code as served.
func (m *MockAPIClient) FindPostalCode(ctx context.Context, req *PostalCodeRequest) (*StatusResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnFindPostalCode != nil {
		return m.OnFindPostalCode(ctx, req)
	}
	return &StatusResponse{Status: courier.StatusOK}, nil
}

// GetCourierOrderAvailability returns two windows for today and tomorrow.
func (m *MockAPIClient) GetCourierOrderAvailability(ctx context.Context, req *CourierAvailabilityRequest) (*CourierAvailabilityResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetCourierOrderAvailability != nil {
		return m.OnGetCourierOrderAvailability(ctx, req)
	}
	return &CourierAvailabilityResponse{
		Status: courier.StatusOK,
		Ranges: []AvailabilityRange{
			{Offset: 0, Range: "10:00-16:00", TimeFrom: "10:00", TimeTo: "16:00"},
			{Offset: 1, Range: "08:00-16:00", TimeFrom: "08:00", TimeTo: "16:00"},
		},
	}, nil
}

func mockDocument(format, kind string) []byte {
	if format == "" || format == string(courier.FilePDF) {
		return []byte("%PDF-1.4 mock dpd " + kind + " data")
	}
	return []byte("^XA mock dpd " + kind + " data ^XZ")
}

func mockSessionPackages(req *DocumentRequest) []PackageResult {
	var out []PackageResult
	for _, p := range req.ServicesParams.Session.Packages {
		out = append(out, PackageResult{PackageID: p.PackageID, Status: courier.StatusOK})
	}
	return out
}

var _ APIClient = (*MockAPIClient)(nil)
