package dpd

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	// DefaultWSDLURL is the production DPD Poland package service.
	DefaultWSDLURL = "https://dpdservices.dpd.com.pl/DPDPackageObjServicesService/DPDPackageObjServices?WSDL"

	soapEnvNamespace = "http://schemas.xmlsoap.org/soap/envelope/"
	dpdNamespace     = "http://dpdservices.dpd.com.pl/"
)

// Operation names. Versioned operations get the API version appended.
const (
	opPackagesNumbers     = "generatePackagesNumbersV"
	opSpeedLabels         = "generateSpedLabelsV"
	opAppendParcels       = "appendParcelsToPackageV1"
	opProtocol            = "generateProtocolV1"
	opPickupCall          = "packagesPickupCallV1"
	opFindPostalCode      = "findPostalCodeV1"
	opCourierAvailability = "getCourierOrderAvailabilityV1"
)

func versioned(op string, version int) string {
	return op + strconv.Itoa(version)
}

// SOAPAPIClient is the production implementation of APIClient.
type SOAPAPIClient struct {
	endpoint   string
	apiVersion int
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// SOAPAPIClientConfig holds configuration for the SOAP client.
type SOAPAPIClientConfig struct {
	WSDLURL    string
	APIVersion int
	Timeout    time.Duration

	// FailureThreshold is the number of consecutive transport failures
	// that opens the circuit. Zero means 5.
	FailureThreshold uint32
	// OpenTimeout is how long the circuit stays open. Zero means 30s.
	OpenTimeout time.Duration

	Logger *otelzap.Logger
}

// NewSOAPAPIClient creates a new SOAP-based API client for production use.
func NewSOAPAPIClient(cfg SOAPAPIClientConfig) *SOAPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	version := cfg.APIVersion
	if version < 1 {
		version = 1
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout == 0 {
		openTimeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dpd-soap",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errAbandoned)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &SOAPAPIClient{
		endpoint:   serviceEndpoint(cfg.WSDLURL),
		apiVersion: version,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
	}
}

// serviceEndpoint strips the ?WSDL suffix; requests are posted to the
// service address itself.
func serviceEndpoint(wsdlURL string) string {
	if i := strings.LastIndexByte(wsdlURL, '?'); i >= 0 && strings.EqualFold(wsdlURL[i+1:], "wsdl") {
		return wsdlURL[:i]
	}
	return wsdlURL
}

// GeneratePackagesNumbers calls generatePackagesNumbersV{n}.
func (c *SOAPAPIClient) GeneratePackagesNumbers(ctx context.Context, req *PackagesNumbersRequest) (*PackagesNumbersResponse, error) {
	ret, err := c.call(ctx, versioned(opPackagesNumbers, c.apiVersion), req)
	if err != nil {
		return nil, err
	}
	if c.apiVersion > 1 {
		return &PackagesNumbersResponse{
			Status:    ret.StatusV2,
			SessionID: ret.SessionIDV2,
			Packages:  packagesV2(ret.PackagesV2),
		}, nil
	}
	return &PackagesNumbersResponse{
		Status:    ret.Status,
		SessionID: ret.SessionID,
		Packages:  packagesV1(ret.Packages),
	}, nil
}

// AppendParcelsToPackage calls appendParcelsToPackageV1.
func (c *SOAPAPIClient) AppendParcelsToPackage(ctx context.Context, req *AppendParcelsRequest) (*StatusResponse, error) {
	ret, err := c.call(ctx, opAppendParcels, req)
	if err != nil {
		return nil, err
	}
	return &StatusResponse{Status: ret.Status}, nil
}

// GenerateSpeedLabels calls generateSpedLabelsV{n}.
func (c *SOAPAPIClient) GenerateSpeedLabels(ctx context.Context, req *DocumentRequest) (*DocumentResponse, error) {
	ret, err := c.call(ctx, versioned(opSpeedLabels, c.apiVersion), req)
	if err != nil {
		return nil, err
	}
	return documentResponse(ret)
}

// GenerateProtocol calls generateProtocolV1.
func (c *SOAPAPIClient) GenerateProtocol(ctx context.Context, req *DocumentRequest) (*DocumentResponse, error) {
	ret, err := c.call(ctx, opProtocol, req)
	if err != nil {
		return nil, err
	}
	return documentResponse(ret)
}

// PackagesPickupCall calls packagesPickupCallV1.
func (c *SOAPAPIClient) PackagesPickupCall(ctx context.Context, req *PickupCallRequest) (*PickupCallResponse, error) {
	ret, err := c.call(ctx, opPickupCall, req)
	if err != nil {
		return nil, err
	}
	resp := &PickupCallResponse{}
	if ret.Prototocols != nil {
		resp.Protocols = make([]ProtocolResult, 0, len(ret.Prototocols))
		for _, p := range ret.Prototocols {
			resp.Protocols = append(resp.Protocols, ProtocolResult{
				DocumentID: p.DocumentID,
				Status:     p.StatusInfo.Status,
			})
		}
	}
	return resp, nil
}

// FindPostalCode calls findPostalCodeV1.
func (c *SOAPAPIClient) FindPostalCode(ctx context.Context, req *PostalCodeRequest) (*StatusResponse, error) {
	ret, err := c.call(ctx, opFindPostalCode, req)
	if err != nil {
		return nil, err
	}
	return &StatusResponse{Status: ret.Status}, nil
}

// GetCourierOrderAvailability calls getCourierOrderAvailabilityV1.
func (c *SOAPAPIClient) GetCourierOrderAvailability(ctx context.Context, req *CourierAvailabilityRequest) (*CourierAvailabilityResponse, error) {
	ret, err := c.call(ctx, opCourierAvailability, req)
	if err != nil {
		return nil, err
	}
	resp := &CourierAvailabilityResponse{Status: ret.Status}
	for _, r := range ret.Ranges {
		resp.Ranges = append(resp.Ranges, AvailabilityRange{
			Offset:   r.Offset,
			Range:    r.Range,
			TimeFrom: r.TimeFrom,
			TimeTo:   r.TimeTo,
		})
	}
	return resp, nil
}

// ============================================================================
// SOAP Request Helpers
// ============================================================================

// call sends one operation and returns its <return> element. Every failure
// is a *CallError carrying the request that was sent.
func (c *SOAPAPIClient) call(ctx context.Context, operation string, payload any) (*soapReturn, error) {
	body, err := buildEnvelope(operation, payload)
	if err != nil {
		return nil, &CallError{Operation: operation, Err: fmt.Errorf("failed to build request: %w", err)}
	}

	ret, err := c.roundTrip(ctx, operation, body)
	if err != nil {
		return nil, &CallError{Operation: operation, Request: body, Err: err}
	}
	return ret, nil
}

// errAbandoned marks calls whose caller went away before the reply arrived.
var errAbandoned = errors.New("request abandoned by caller")

func (c *SOAPAPIClient) roundTrip(ctx context.Context, operation string, body []byte) (*soapReturn, error) {
	// Only transport failures count against the breaker; SOAP faults are
	// answers from a healthy service and abandoned calls say nothing about it.
	out, err := c.breaker.Execute(func() (interface{}, error) {
		reply, err := c.post(ctx, body)
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errAbandoned, err)
		}
		return reply, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("service unavailable: %w", err)
	}
	if err != nil {
		return nil, err
	}
	raw := out.(*httpReply)

	var env soapEnvelope
	if err := xml.Unmarshal(raw.body, &env); err != nil {
		if raw.status != http.StatusOK {
			return nil, &APIError{Code: fmt.Sprintf("HTTP_%d", raw.status), Description: string(raw.body)}
		}
		return nil, fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	if env.Body.Fault != nil {
		return nil, &APIError{Code: env.Body.Fault.Code, Description: env.Body.Fault.String}
	}
	if env.Body.Response == nil {
		return nil, fmt.Errorf("empty %s response", operation)
	}
	return &env.Body.Response.Return, nil
}

type httpReply struct {
	status int
	body   []byte
}

func (c *SOAPAPIClient) post(ctx context.Context, body []byte) (*httpReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `""`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	// A 500 carrying a SOAP fault is a valid answer.
	if resp.StatusCode >= http.StatusInternalServerError && !bytes.Contains(data, []byte("Fault>")) {
		return nil, &APIError{Code: fmt.Sprintf("HTTP_%d", resp.StatusCode), Description: string(data)}
	}
	return &httpReply{status: resp.StatusCode, body: data}, nil
}

// ============================================================================
// SOAP Request Builders
// ============================================================================

type soapRequestEnvelope struct {
	XMLName xml.Name        `xml:"soapenv:Envelope"`
	SoapEnv string          `xml:"xmlns:soapenv,attr"`
	DPD     string          `xml:"xmlns:dpd,attr"`
	Header  struct{}        `xml:"soapenv:Header"`
	Body    soapRequestBody `xml:"soapenv:Body"`
}

// soapRequestBody wraps the payload in an element named after the operation.
type soapRequestBody struct {
	operation string
	payload   any
}

func (b soapRequestBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.EncodeElement(b.payload, xml.StartElement{Name: xml.Name{Local: "dpd:" + b.operation}}); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func buildEnvelope(operation string, payload any) ([]byte, error) {
	env := soapRequestEnvelope{
		SoapEnv: soapEnvNamespace,
		DPD:     dpdNamespace,
		Body:    soapRequestBody{operation: operation, payload: payload},
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ============================================================================
// SOAP Response Types
// ============================================================================

type soapEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    soapBody `xml:"Body"`
}

type soapBody struct {
	Fault    *soapFault    `xml:"Fault"`
	Response *soapResponse `xml:",any"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type soapResponse struct {
	XMLName xml.Name
	Return  soapReturn `xml:"return"`
}

// soapReturn holds every <return> child used by the supported operations.
// API version 2 and later capitalise the registration fields.
type soapReturn struct {
	Status      string             `xml:"status"`
	StatusV2    string             `xml:"Status"`
	SessionID   string             `xml:"sessionId"`
	SessionIDV2 string             `xml:"SessionId"`
	Packages    []packageV1        `xml:"packages"`
	PackagesV2  []packageV2        `xml:"Packages>Package"`
	DocumentID  string             `xml:"documentId"`
	DocumentB64 string             `xml:"documentData"`
	Session     documentSession    `xml:"session"`
	Prototocols []pickupProtocol   `xml:"prototocols"`
	Ranges      []availabilityItem `xml:"ranges"`
}

type statusInfo struct {
	Status string `xml:"status"`
}

type parcelV1 struct {
	ParcelID  string `xml:"parcelId"`
	Status    string `xml:"status"`
	Reference string `xml:"reference"`
	Waybill   string `xml:"waybill"`
}

type packageV1 struct {
	PackageID string     `xml:"packageId"`
	Status    string     `xml:"status"`
	Reference string     `xml:"reference"`
	Parcels   []parcelV1 `xml:"parcels"`
}

type parcelV2 struct {
	ParcelID  string `xml:"ParcelId"`
	Status    string `xml:"Status"`
	Reference string `xml:"Reference"`
	Waybill   string `xml:"Waybill"`
}

type packageV2 struct {
	PackageID string     `xml:"PackageId"`
	Status    string     `xml:"Status"`
	Reference string     `xml:"Reference"`
	Parcels   []parcelV2 `xml:"Parcels>Parcel"`
}

type sessionParcel struct {
	ParcelID   string     `xml:"parcelId"`
	Reference  string     `xml:"reference"`
	Waybill    string     `xml:"waybill"`
	StatusInfo statusInfo `xml:"statusInfo"`
}

type sessionPackage struct {
	PackageID  string          `xml:"packageId"`
	Reference  string          `xml:"reference"`
	StatusInfo statusInfo      `xml:"statusInfo"`
	Parcels    []sessionParcel `xml:"parcels"`
}

type documentSession struct {
	SessionID  string           `xml:"sessionId"`
	StatusInfo statusInfo       `xml:"statusInfo"`
	Packages   []sessionPackage `xml:"packages"`
}

type pickupProtocol struct {
	DocumentID string     `xml:"documentId"`
	StatusInfo statusInfo `xml:"statusInfo"`
}

type availabilityItem struct {
	Offset   int    `xml:"offset"`
	Range    string `xml:"range"`
	TimeFrom string `xml:"timeFrom"`
	TimeTo   string `xml:"timeTo"`
}

// ============================================================================
// SOAP Response Parsers
// ============================================================================

func packagesV1(in []packageV1) []PackageResult {
	out := make([]PackageResult, 0, len(in))
	for _, p := range in {
		pkg := PackageResult{PackageID: p.PackageID, Status: p.Status, Reference: p.Reference}
		for _, pc := range p.Parcels {
			pkg.Parcels = append(pkg.Parcels, ParcelResult(pc))
		}
		out = append(out, pkg)
	}
	return out
}

func packagesV2(in []packageV2) []PackageResult {
	out := make([]PackageResult, 0, len(in))
	for _, p := range in {
		pkg := PackageResult{PackageID: p.PackageID, Status: p.Status, Reference: p.Reference}
		for _, pc := range p.Parcels {
			pkg.Parcels = append(pkg.Parcels, ParcelResult(pc))
		}
		out = append(out, pkg)
	}
	return out
}

func documentResponse(ret *soapReturn) (*DocumentResponse, error) {
	// base64Binary content may be wrapped across lines.
	data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(ret.DocumentB64), ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode document data: %w", err)
	}

	resp := &DocumentResponse{
		Status:       ret.Session.StatusInfo.Status,
		DocumentID:   ret.DocumentID,
		DocumentData: data,
	}
	for _, p := range ret.Session.Packages {
		pkg := PackageResult{PackageID: p.PackageID, Status: p.StatusInfo.Status, Reference: p.Reference}
		for _, pc := range p.Parcels {
			pkg.Parcels = append(pkg.Parcels, ParcelResult{
				ParcelID:  pc.ParcelID,
				Status:    pc.StatusInfo.Status,
				Reference: pc.Reference,
				Waybill:   pc.Waybill,
			})
		}
		resp.Packages = append(resp.Packages, pkg)
	}
	return resp, nil
}
