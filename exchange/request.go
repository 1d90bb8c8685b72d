package exchange

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// HeaderAPIVersion carries the node API version on every request.
	HeaderAPIVersion = "X-API-Version"

	// ContentTypeJSON is the content type for JSON command bodies.
	ContentTypeJSON = "application/json"
	// ContentTypeFormURLEncoded is the content type for form-encoded bodies.
	ContentTypeFormURLEncoded = "application/x-www-form-urlencoded"

	// DefaultHeaderBudget is the largest request header BuildHeader produces
	// unless configured otherwise.
	DefaultHeaderBudget = 1024
)

// RequestConfig describes the node endpoint a Client talks to. It is read-only
// for the duration of an exchange.
type RequestConfig struct {
	Host          string `validate:"required"`
	Port          int    `validate:"min=1,max=65535"`
	Path          string `validate:"required,startswith=/"`
	APIVersion    int    `validate:"min=1"`
	ContentType   string `validate:"required"`
	Accept        string `validate:"required"`
	CACertificate []byte
}

var requestValidator = validator.New()

// Validate checks the configuration fields.
func (c *RequestConfig) Validate() error {
	if err := requestValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid request config: %w", err)
	}
	return nil
}

// BuildHeader formats the request line and header block for a body of bodyLen
// bytes. It fails with a format error when a value contains CR or LF or when
// the result would exceed budget bytes. A budget <= 0 selects DefaultHeaderBudget.
func BuildHeader(cfg *RequestConfig, bodyLen, budget int) ([]byte, error) {
	if budget <= 0 {
		budget = DefaultHeaderBudget
	}
	for _, v := range [...]struct{ name, value string }{
		{"path", cfg.Path},
		{"host", cfg.Host},
		{"content type", cfg.ContentType},
		{"accept", cfg.Accept},
	} {
		if strings.ContainsAny(v.value, "\r\n") {
			return nil, NewFormatError(v.name + " contains a line break")
		}
	}

	var b strings.Builder
	b.Grow(budget)
	b.WriteString("POST ")
	b.WriteString(cfg.Path)
	b.WriteString(" HTTP/1.1\r\nHost: ")
	b.WriteString(cfg.Host)
	b.WriteString("\r\n" + HeaderAPIVersion + ": ")
	b.WriteString(strconv.Itoa(cfg.APIVersion))
	b.WriteString("\r\nContent-Type: ")
	b.WriteString(cfg.ContentType)
	b.WriteString("\r\nAccept: ")
	b.WriteString(cfg.Accept)
	b.WriteString("\r\nContent-Length: ")
	b.WriteString(strconv.Itoa(bodyLen))
	b.WriteString("\r\n\r\n")

	if b.Len() > budget {
		return nil, NewFormatError(fmt.Sprintf("header is %d bytes, budget is %d", b.Len(), budget))
	}
	return []byte(b.String()), nil
}
