package arca

import (
	"fmt"
	"strings"

	"github.com/arcafe/go-arca-client/arca/soap"
)

// Environment selects between the staging (homologación) and production
// deployments. Each carries a fixed endpoint per service.
type Environment int

const (
	Testing Environment = iota
	Production
)

// AuthEndpoint is the authentication service (WSAA) endpoint.
func (e Environment) AuthEndpoint() soap.Endpoint {
	switch e {
	case Production:
		return soap.Endpoint{Host: "wsaa.afip.gov.ar", Path: "/ws/services/LoginCms"}
	case Testing:
		return soap.Endpoint{Host: "wsaahomo.afip.gov.ar", Path: "/ws/services/LoginCms"}
	}
	panic("invalid environment")
}

// InvoiceEndpoint is the invoicing service (WSFEv1) endpoint.
func (e Environment) InvoiceEndpoint() soap.Endpoint {
	switch e {
	case Production:
		return soap.Endpoint{Host: "servicios1.afip.gov.ar", Path: "/wsfev1/service.asmx"}
	case Testing:
		return soap.Endpoint{Host: "wswhomo.afip.gov.ar", Path: "/wsfev1/service.asmx"}
	}
	panic("invalid environment")
}

// Name is the short form used to key the credential cache on disk.
func (e Environment) Name() string {
	switch e {
	case Production:
		return "prod"
	case Testing:
		return "homo"
	}
	panic("invalid environment")
}

func (e *Environment) UnmarshalText(text []byte) error {
	val := strings.ToLower(strings.TrimSpace(string(text)))

	switch val {
	case "prod", "production":
		*e = Production
	case "homo", "testing":
		*e = Testing
	default:
		return fmt.Errorf("invalid ARCA_ENV: %q (allowed: prod, homo)", val)
	}
	return nil
}
