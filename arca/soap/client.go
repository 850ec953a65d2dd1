package soap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "arca.soap")

const defaultTimeout = 30 * time.Second

const envelope = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<soapenv:Envelope ` +
	`xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" ` +
	`xmlns:xsd="http://www.w3.org/2001/XMLSchema" ` +
	`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
	`<soapenv:Header/>` +
	`<soapenv:Body>%s</soapenv:Body>` +
	`</soapenv:Envelope>`

// Endpoint is a fixed host/path pair for one of the remote services.
type Endpoint struct {
	Host string
	Path string
}

func (e Endpoint) URL() string {
	return "https://" + e.Host + e.Path
}

// Caller executes a SOAP action against an endpoint and returns the raw
// response body.
type Caller interface {
	Call(ctx context.Context, endpoint Endpoint, action, body string) (string, error)
}

// TransportError is a genuine connection-level failure: timeout, refused
// connection, or an HTTP status the service never uses for envelopes.
type TransportError struct {
	Host       string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error calling %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("unexpected HTTP %d from %s", e.StatusCode, e.Host)
}

func (e *TransportError) Unwrap() error { return e.Err }

type Client struct {
	rest *resty.Client
}

type Option func(*Client)

// WithInsecureSkipVerify disables certificate chain and hostname
// verification. The staging endpoint serves a certificate that does not
// verify against public roots, so this is a deliberate compatibility switch
// for that environment; leave it off against production.
func WithInsecureSkipVerify() Option {
	return func(c *Client) {
		c.rest.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.rest.SetTimeout(d)
	}
}

func NewClient(opts ...Option) *Client {
	rest := resty.New().SetTimeout(defaultTimeout)
	c := &Client{rest: rest}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call wraps body in the outer SOAP 1.1 envelope and POSTs it. Status 200
// and 500 both return the body: the service reports protocol faults with
// status 500 and a normal envelope. Anything else is a TransportError.
func (c *Client) Call(ctx context.Context, endpoint Endpoint, action, body string) (string, error) {

	payload := fmt.Sprintf(envelope, body)

	logger.Debugf("SOAP -> %s action=%q", endpoint.URL(), action)

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/xml; charset=utf-8").
		SetHeader("SOAPAction", `"`+action+`"`).
		SetBody(payload).
		Post(endpoint.URL())
	if err != nil {
		return "", &TransportError{Host: endpoint.Host, Err: err}
	}

	logger.Debugf("SOAP <- HTTP %d", resp.StatusCode())

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusInternalServerError:
		return resp.String(), nil
	default:
		return "", &TransportError{Host: endpoint.Host, StatusCode: resp.StatusCode()}
	}
}
