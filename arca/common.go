// Package arca is a client for the ARCA electronic invoicing services: the
// authentication service exchanges a signed access ticket for a token/sign
// credential, and the invoicing service authorizes invoices against it. The
// Client facade owns credential lifecycle; the HTTP layer consuming it is
// out of scope.
package arca

import (
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "arca")

var (
	// ErrNoCUIT means the facade was built without a taxpayer identifier.
	ErrNoCUIT = errors.New("no CUIT configured")

	// ErrNoPointOfSale means an invoice identifier did not carry an
	// extractable point of sale.
	ErrNoPointOfSale = errors.New("no point of sale in invoice number")
)
