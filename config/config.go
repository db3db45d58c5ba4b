// Package config loads the service configuration from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"

	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/integrity"
	"github.com/digitorus/pdfstamp/internal/logging"
)

var DefaultLocation string = "./pdfstamp.conf" // Default location of the config file

// Config is the root of the config
type Config struct {
	Server    Server         `toml:"server"`
	Storage   Storage        `toml:"storage"`
	Template  Template       `toml:"template"`
	Audit     Audit          `toml:"audit"`
	Placement Placement      `toml:"placement"`
	Integrity Integrity      `toml:"integrity"`
	Log       logging.Config `toml:"log"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Port int `toml:"port" valid:"range(1|65535)"`
	// BaseURL prefixes the URLs of signed documents. When left out it is
	// derived from Port, e.g. http://localhost:3001.
	BaseURL string `toml:"base_url" valid:"required,requrl"`
	// MaxBodyBytes limits the size of a signing request.
	MaxBodyBytes int64 `toml:"max_body_bytes" valid:"range(1|1073741824)"`
	// CORSOrigin is sent as Access-Control-Allow-Origin.
	CORSOrigin string `toml:"cors_origin"`
}

// Storage configures where signed documents are written.
type Storage struct {
	SignedDocsDir string `toml:"signed_docs_dir" valid:"required"`
}

// Template is the PDF every signature is stamped onto.
type Template struct {
	Path string `toml:"path" valid:"required"`
	// DocumentID identifies the template in audit records when the request
	// does not name one.
	DocumentID string `toml:"document_id"`
}

// Audit configures the integrity record store. An empty DatabaseURL keeps
// records in memory.
type Audit struct {
	DatabaseURL string `toml:"database_url"`
	// MaxConns caps the connection pool.
	MaxConns int32 `toml:"max_conns" valid:"range(0|1000)"`
}

// Placement mirrors geometry.Policy.
type Placement struct {
	ClampMin          float64 `toml:"clamp_min"`
	ClampMax          float64 `toml:"clamp_max"`
	FallbackX         float64 `toml:"fallback_x"`
	FallbackWidth     float64 `toml:"fallback_width"`
	FallbackMaxHeight float64 `toml:"fallback_max_height"`
}

// Policy converts the section to a geometry.Policy.
func (p Placement) Policy() geometry.Policy {
	return geometry.Policy{
		ClampMin:          p.ClampMin,
		ClampMax:          p.ClampMax,
		FallbackX:         p.FallbackX,
		FallbackWidth:     p.FallbackWidth,
		FallbackMaxHeight: p.FallbackMaxHeight,
	}
}

// Integrity selects the digest written to audit records.
type Integrity struct {
	Algorithm string `toml:"algorithm" valid:"in(sha256|sha3-256|blake2b-256)"`
}

// DefaultPort is the listen port when neither the file nor PORT sets one.
const DefaultPort = 3001

// LocalURL is the base URL of a server listening on port of this host.
func LocalURL(port int) string {
	return "http://localhost:" + strconv.Itoa(port)
}

// Default returns the configuration used for values the file leaves out.
func Default() Config {
	p := geometry.DefaultPolicy()
	return Config{
		Server: Server{
			Port:         DefaultPort,
			BaseURL:      LocalURL(DefaultPort),
			MaxBodyBytes: 50 << 20,
			CORSOrigin:   "*",
		},
		Storage: Storage{
			SignedDocsDir: "signed_docs",
		},
		Template: Template{
			Path:       "template.pdf",
			DocumentID: "template",
		},
		Audit: Audit{
			MaxConns: 10,
		},
		Placement: Placement{
			ClampMin:          p.ClampMin,
			ClampMax:          p.ClampMax,
			FallbackX:         p.FallbackX,
			FallbackWidth:     p.FallbackWidth,
			FallbackMaxHeight: p.FallbackMaxHeight,
		},
		Integrity: Integrity{
			Algorithm: string(integrity.SHA256),
		},
		Log: logging.DefaultConfig(),
	}
}

// ValidateFields validates all the fields of the config
func (c Config) ValidateFields() error {
	_, err := govalidator.ValidateStruct(c)
	if err != nil {
		return err
	}
	if err := c.Placement.Policy().Validate(); err != nil {
		return fmt.Errorf("placement: %w", err)
	}
	return nil
}

// Read loads configfile on top of the defaults, applies environment
// overrides and validates the result. A missing file is not an error when
// configfile is DefaultLocation.
func Read(configfile string) (Config, error) {
	c := Default()

	if _, err := os.Stat(configfile); err != nil {
		if !errors.Is(err, os.ErrNotExist) || configfile != DefaultLocation {
			return Config{}, fmt.Errorf("config file is missing: %s", configfile)
		}
	} else {
		md, err := toml.DecodeFile(configfile, &c)
		if err != nil {
			return Config{}, fmt.Errorf("failed to decode config %s: %w", configfile, err)
		}
		if !md.IsDefined("server", "base_url") {
			c.Server.BaseURL = LocalURL(c.Server.Port)
		}
	}

	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := c.ValidateFields(); err != nil {
		return Config{}, fmt.Errorf("config is not valid: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides values from the environment. lookup is usually
// os.LookupEnv.
//
// A base URL that still points at the local listener follows PORT, unless
// SERVER_BASE_URL is set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		if c.Server.BaseURL == LocalURL(c.Server.Port) {
			c.Server.BaseURL = LocalURL(port)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("SERVER_BASE_URL"); ok && v != "" {
		c.Server.BaseURL = v
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		c.Audit.DatabaseURL = v
	}
	if v, ok := lookup("TEMPLATE_PATH"); ok && v != "" {
		c.Template.Path = v
	}
	if v, ok := lookup("SIGNED_DOCS_DIR"); ok && v != "" {
		c.Storage.SignedDocsDir = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}
