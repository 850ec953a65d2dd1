package model

import "github.com/shopspring/decimal"

// Fixed protocol constants. Only type C invoices for services are issued
// through this client.
const (
	InvoiceTypeC    = 11    // Factura C
	ConceptServices = 2     // Concepto: servicios
	CurrencyARS     = "PES" // Argentine pesos
	DocTypeCUIT     = 80    // recipient document type: CUIT
	VATConditionID  = 5     // CondicionIVAReceptorId: consumidor final
)

type Outcome string

const (
	OutcomeApproved Outcome = "A"
	OutcomeRejected Outcome = "R"
	OutcomePartial  Outcome = "P"
)

// CodeMessage is an error or observation pair as reported by the service.
type CodeMessage struct {
	Code    string
	Message string
}

// InvoiceLine is the value record handed over by the upload layer. Number
// carries the composite identifier ("C00002-00000144") the point of sale is
// extracted from; IssueDate is in display form DD/MM/YYYY.
type InvoiceLine struct {
	Number         string
	IssueDate      string
	Amount         decimal.Decimal
	RecipientTaxID string
}

// InvoiceRequest is a single-record authorization request. Sequence must be
// the last authorized number for the point of sale plus one at submission
// time. IssueDate is in compact form YYYYMMDD.
type InvoiceRequest struct {
	PointOfSale    int
	Sequence       int
	IssueDate      string
	Amount         decimal.Decimal
	RecipientTaxID string
}

// AuthorizationResult carries the authorization code granted for a submitted
// invoice. Observations are non-fatal warnings returned alongside approval;
// callers should log them.
type AuthorizationResult struct {
	Code         string
	CodeExpiry   string // DD/MM/YYYY
	Sequence     int
	Outcome      Outcome
	Observations []CodeMessage
	Raw          string
}

// InvoiceRecord is a previously authorized invoice as returned by the query
// operation. BusinessName and Description are always empty: the remote
// service does not persist them, only the fiscal fields survive.
type InvoiceRecord struct {
	PointOfSale    int
	Sequence       int
	IssueDate      string // compact YYYYMMDD, as returned by the service
	RecipientTaxID string // re-formatted with grouping separators
	Amount         decimal.Decimal
	AuthCode       string
	AuthCodeExpiry string
	Outcome        Outcome
	BusinessName   string
	Description    string
}
