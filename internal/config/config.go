package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tournevent/parcelbridge/pkg/courier/dpd"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Carrier  string `envconfig:"CARRIER" default:"dpd"`

	// DPD
	DPDFID        string        `envconfig:"DPD_FID"`
	DPDUsername   string        `envconfig:"DPD_USERNAME"`
	DPDPassword   string        `envconfig:"DPD_PASSWORD"`
	DPDWSDLURL    string        `envconfig:"DPD_WSDL_URL" default:"https://dpdservices.dpd.com.pl/DPDPackageObjServicesService/DPDPackageObjServices?WSDL"`
	DPDAPIVersion int           `envconfig:"DPD_API_VERSION" default:"1"`
	DPDLangCode   string        `envconfig:"DPD_LANG_CODE" default:"PL"`
	DPDTimeout    time.Duration `envconfig:"DPD_TIMEOUT" default:"30s"`
	DPDUseMock    bool          `envconfig:"DPD_USE_MOCK" default:"false"`

	// Diagnostic request log
	DPDDebug    bool   `envconfig:"DPD_DEBUG" default:"false"`
	DPDLogPath  string `envconfig:"DPD_LOG_PATH" default:"./logs"`
	DPDTimezone string `envconfig:"DPD_TIMEZONE" default:"Europe/Warsaw"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"parcelbridge"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads optional dotenv files, then configuration from environment
// variables. Variables already set in the environment win over dotenv values;
// missing dotenv files are skipped.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// DPD returns the workflow configuration for the DPD client.
func (c *Config) DPD() dpd.Config {
	return dpd.Config{
		FID:        c.DPDFID,
		Username:   c.DPDUsername,
		Password:   c.DPDPassword,
		WSDLURL:    c.DPDWSDLURL,
		APIVersion: c.DPDAPIVersion,
		LangCode:   c.DPDLangCode,
		Timeout:    c.DPDTimeout,
		UseMock:    c.DPDUseMock,
	}
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Int("dpd.api_version", c.DPDAPIVersion),
		attribute.Bool("dpd.mock", c.DPDUseMock),
	}
}
