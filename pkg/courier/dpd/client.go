// Package dpd implements the courier workflow against the DPD Poland SOAP
// package service.
package dpd

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tournevent/parcelbridge/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const carrierName = "dpd"

// Config holds DPD configuration.
type Config struct {
	FID        string
	Username   string
	Password   string
	WSDLURL    string
	APIVersion int
	LangCode   string
	Timeout    time.Duration
	UseMock    bool
}

// DiagnosticRecorder receives the raw request of a failed gateway call.
type DiagnosticRecorder interface {
	Record(operation string, request []byte)
}

// Client is a DPD shipment workflow. It is not safe for concurrent workflows;
// use Fork to obtain one per caller.
type Client struct {
	config      Config
	apiClient   APIClient
	logger      *otelzap.Logger
	tracer      trace.Tracer
	diagnostics DiagnosticRecorder

	mu        sync.RWMutex
	sender    courier.Party
	sessionID string
}

// New creates a new DPD client, using the SOAP gateway unless UseMock is set.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	if cfg.WSDLURL == "" && !cfg.UseMock {
		return nil, courier.NewConfigurationError("DPD service endpoint is not configured").WithOp("dpd.New")
	}

	var apiClient APIClient
	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewSOAPAPIClient(SOAPAPIClientConfig{
			WSDLURL:    cfg.WSDLURL,
			APIVersion: cfg.APIVersion,
			Timeout:    cfg.Timeout,
			Logger:     logger,
		})
	}
	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new DPD client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	if !cfg.UseMock {
		switch {
		case cfg.FID == "":
			return nil, courier.NewConfigurationError("DPD master FID is not configured").WithOp("dpd.New")
		case cfg.Username == "" || cfg.Password == "":
			return nil, courier.NewConfigurationError("DPD credentials are not configured").WithOp("dpd.New")
		}
	}
	if cfg.APIVersion < 1 {
		cfg.APIVersion = 1
	}
	if cfg.LangCode == "" {
		cfg.LangCode = "PL"
	}
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(carrierName)
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}, nil
}

// SetDiagnostics installs the recorder for requests of failed calls.
func (c *Client) SetDiagnostics(rec DiagnosticRecorder) {
	c.diagnostics = rec
}

// Fork returns a workflow sharing configuration, gateway and telemetry with c
// but with no sender and no session.
func (c *Client) Fork() *Client {
	return &Client{
		config:      c.config,
		apiClient:   c.apiClient,
		logger:      c.logger,
		tracer:      c.tracer,
		diagnostics: c.diagnostics,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// SetSender sets the sender used by packages built afterwards.
func (c *Client) SetSender(sender courier.Party) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sender = sender
}

// Sender returns the current sender.
func (c *Client) Sender() courier.Party {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sender
}

// SessionID returns the session of the last successful registration.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Client) setSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

func (c *Client) authData() AuthData {
	return AuthData{
		MasterFID: c.config.FID,
		Login:     c.config.Username,
		Password:  c.config.Password,
	}
}

func (c *Client) method(op string) string {
	switch op {
	case opPackagesNumbers, opSpeedLabels:
		return versioned(op, c.config.APIVersion)
	}
	return op
}

func (c *Client) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "dpd."+name, trace.WithAttributes(attrs...))
}

// gatewayFailure logs a failed remote call, hands its request to the
// diagnostic recorder and wraps it as a transport error.
func (c *Client) gatewayFailure(ctx context.Context, span trace.Span, method string, err error) error {
	var ce *CallError
	if c.diagnostics != nil && errors.As(err, &ce) && len(ce.Request) > 0 {
		c.diagnostics.Record(method, ce.Request)
	}

	c.logger.Ctx(ctx).Error("DPD API error",
		zap.String("method", method),
		zap.Error(err),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, "gateway call failed")
	return courier.NewTransportError(method, err)
}

// rejected marks a span whose operation failed validation.
func rejected(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "validation failed")
	return err
}

var _ courier.Courier = (*Client)(nil)
