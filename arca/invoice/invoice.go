// Package invoice implements the invoicing service flow: last authorized
// number, authorization requests and historical lookups.
package invoice

import (
	"context"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/arcafe/go-arca-client/arca/model"
	"github.com/arcafe/go-arca-client/arca/soap"
	"github.com/arcafe/go-arca-client/arca/tpl"
	"github.com/arcafe/go-arca-client/arca/util"
)

var logger = logrus.WithField("component", "arca.invoice")

const actionNS = "http://ar.gov.afip.dif.FEV1/"

// DefaultRangeConcurrency bounds parallel per-number lookups during a range
// query. The service has no published rate limit; the default is deliberately
// small.
const DefaultRangeConcurrency = 4

type Service interface {
	// LastAuthorized returns the last authorized invoice number for a point
	// of sale. Zero means no invoices issued yet; it is a valid outcome, not
	// a fault.
	LastAuthorized(ctx context.Context, cred *model.Credential, cuit string, pointOfSale int) (int, error)

	// RequestAuthorization submits a single-record batch and returns the
	// authorization code granted for it.
	RequestAuthorization(ctx context.Context, cred *model.Credential, cuit string, req model.InvoiceRequest) (*model.AuthorizationResult, error)

	// Query looks up a previously authorized invoice by number.
	Query(ctx context.Context, cred *model.Credential, cuit string, pointOfSale, sequence int) (*model.InvoiceRecord, error)

	// QueryRange looks up the closed range [from, to]. Numbers whose lookup
	// fails are skipped: gaps in the sequence are expected, not exceptional.
	QueryRange(ctx context.Context, cred *model.Credential, cuit string, pointOfSale, from, to int) ([]model.InvoiceRecord, error)
}

type service struct {
	caller      soap.Caller
	endpoint    soap.Endpoint
	concurrency int
}

func NewService(caller soap.Caller, endpoint soap.Endpoint, rangeConcurrency int) Service {
	if rangeConcurrency <= 0 {
		rangeConcurrency = DefaultRangeConcurrency
	}
	return &service{caller: caller, endpoint: endpoint, concurrency: rangeConcurrency}
}

type authDTO struct {
	Token string
	Sign  string
	Cuit  string
}

func newAuthDTO(cred *model.Credential, cuit string) authDTO {
	return authDTO{Token: cred.Token, Sign: cred.Sign, Cuit: util.CleanCUIT(cuit)}
}

type lastAuthorizedDTO struct {
	authDTO
	PointOfSale int
	InvoiceType int
}

func (s *service) LastAuthorized(ctx context.Context, cred *model.Credential, cuit string, pointOfSale int) (int, error) {

	body, err := util.MergeTemplate(&tpl.LastAuthorized, lastAuthorizedDTO{
		authDTO:     newAuthDTO(cred, cuit),
		PointOfSale: pointOfSale,
		InvoiceType: model.InvoiceTypeC,
	})
	if err != nil {
		return 0, err
	}

	doc, err := s.call(ctx, "FECompUltimoAutorizado", string(body))
	if err != nil {
		return 0, err
	}

	last := 0
	if nro, ok := soap.FindField(doc.Root(), "CbteNro"); ok {
		if n, err := strconv.Atoi(nro); err == nil && n > 0 {
			last = n
		}
	}

	logger.Infof("last authorized invoice at point of sale %d is %d", pointOfSale, last)
	return last, nil
}

type caeRequestDTO struct {
	authDTO
	PointOfSale    int
	InvoiceType    int
	Concept        int
	DocType        int
	RecipientTaxID string
	Sequence       int
	IssueDate      string
	Amount         string
	Currency       string
	VATCondition   int
}

func (s *service) RequestAuthorization(ctx context.Context, cred *model.Credential, cuit string, req model.InvoiceRequest) (*model.AuthorizationResult, error) {

	amount := req.Amount.StringFixed(2)

	body, err := util.MergeTemplate(&tpl.CAERequest, caeRequestDTO{
		authDTO:        newAuthDTO(cred, cuit),
		PointOfSale:    req.PointOfSale,
		InvoiceType:    model.InvoiceTypeC,
		Concept:        model.ConceptServices,
		DocType:        model.DocTypeCUIT,
		RecipientTaxID: util.CleanCUIT(req.RecipientTaxID),
		Sequence:       req.Sequence,
		IssueDate:      req.IssueDate,
		Amount:         amount,
		Currency:       model.CurrencyARS,
		VATCondition:   model.VATConditionID,
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("requesting authorization: point of sale %d, number %d, amount %s",
		req.PointOfSale, req.Sequence, amount)

	raw, err := s.caller.Call(ctx, s.endpoint, actionNS+"FECAESolicitar", string(body))
	if err != nil {
		return nil, err
	}

	doc, err := soap.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := soap.CheckFault(doc); err != nil {
		return nil, err
	}

	root := doc.Root()
	outcome, _ := soap.FindField(root, "Resultado")
	observations := soap.CollectPairs(root, "Obs")

	if model.Outcome(outcome) == model.OutcomeRejected {
		return nil, &RejectionError{
			Errors:       soap.CollectPairs(root, "Err"),
			Observations: observations,
			Raw:          raw,
		}
	}

	code, _ := soap.FindField(root, "CAE")
	if code == "" {
		snippet := raw
		if len(snippet) > 800 {
			snippet = snippet[:800]
		}
		return nil, errors.Errorf("no authorization code in response: %s", snippet)
	}

	expiry, _ := soap.FindField(root, "CAEFchVto")

	result := &model.AuthorizationResult{
		Code:         code,
		CodeExpiry:   util.DisplayDate(expiry),
		Sequence:     req.Sequence,
		Outcome:      model.Outcome(outcome),
		Observations: observations,
		Raw:          raw,
	}

	logger.Infof("authorization granted: code %s, expires %s", result.Code, result.CodeExpiry)
	return result, nil
}

func (s *service) Query(ctx context.Context, cred *model.Credential, cuit string, pointOfSale, sequence int) (*model.InvoiceRecord, error) {

	body, err := util.MergeTemplate(&tpl.InvoiceQuery, invoiceQueryDTO{
		authDTO:     newAuthDTO(cred, cuit),
		PointOfSale: pointOfSale,
		InvoiceType: model.InvoiceTypeC,
		Sequence:    sequence,
	})
	if err != nil {
		return nil, err
	}

	doc, err := s.call(ctx, "FECompConsultar", string(body))
	if err != nil {
		return nil, err
	}

	root := doc.Root()
	if errs := soap.CollectPairs(root, "Err"); len(errs) > 0 {
		return nil, errors.Errorf("invoice %d at point of sale %d: %s",
			sequence, pointOfSale, joinPairs(errs))
	}

	code, ok := soap.FindField(root, "CodAutorizacion")
	if !ok || code == "" {
		return nil, errors.Errorf("invoice %d at point of sale %d not found", sequence, pointOfSale)
	}

	issueDate, _ := soap.FindField(root, "CbteFch")
	recipient, _ := soap.FindField(root, "DocNro")
	expiry, _ := soap.FindField(root, "FchVto")
	outcome, _ := soap.FindField(root, "Resultado")

	amount := decimal.Zero
	if v, ok := soap.FindField(root, "ImpTotal"); ok {
		if d, err := decimal.NewFromString(v); err == nil {
			amount = d
		}
	}

	// Business name and description are never returned: the service does not
	// persist them, callers must not expect them populated.
	return &model.InvoiceRecord{
		PointOfSale:    pointOfSale,
		Sequence:       sequence,
		IssueDate:      issueDate,
		RecipientTaxID: util.FormatCUIT(recipient),
		Amount:         amount,
		AuthCode:       code,
		AuthCodeExpiry: util.DisplayDate(expiry),
		Outcome:        model.Outcome(outcome),
	}, nil
}

type invoiceQueryDTO struct {
	authDTO
	PointOfSale int
	InvoiceType int
	Sequence    int
}

// QueryRange enumerates [from, to] client-side; the service has no native
// range query. Lookups fan out through an errgroup bounded by the configured
// concurrency, and order is restored afterwards, so parallelism never shows
// in the result.
func (s *service) QueryRange(ctx context.Context, cred *model.Credential, cuit string, pointOfSale, from, to int) ([]model.InvoiceRecord, error) {
	if from < 1 {
		from = 1
	}
	if to < from {
		return nil, nil
	}

	slots := make([]*model.InvoiceRecord, to-from+1)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for seq := from; seq <= to; seq++ {
		seq := seq
		g.Go(func() error {
			rec, err := s.Query(ctx, cred, cuit, pointOfSale, seq)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Debugf("skipping invoice %d at point of sale %d: %v", seq, pointOfSale, err)
				return nil
			}
			slots[seq-from] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]model.InvoiceRecord, 0, len(slots))
	for _, rec := range slots {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records, nil
}

func (s *service) call(ctx context.Context, action, body string) (*etree.Document, error) {
	raw, err := s.caller.Call(ctx, s.endpoint, actionNS+action, body)
	if err != nil {
		return nil, err
	}
	doc, err := soap.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := soap.CheckFault(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// RejectionError is a business rejection: the request was processed at the
// protocol level but refused by validation rules. The message aggregates
// every error and observation pair found anywhere in the response.
type RejectionError struct {
	Errors       []model.CodeMessage
	Observations []model.CodeMessage
	Raw          string
}

func (e *RejectionError) Error() string {
	var b strings.Builder
	b.WriteString("authorization rejected")
	if len(e.Errors) > 0 {
		b.WriteString("; errors: ")
		b.WriteString(joinPairs(e.Errors))
	}
	if len(e.Observations) > 0 {
		b.WriteString("; observations: ")
		b.WriteString(joinPairs(e.Observations))
	}
	if len(e.Errors) == 0 && len(e.Observations) == 0 {
		snippet := e.Raw
		if len(snippet) > 400 {
			snippet = snippet[:400]
		}
		b.WriteString(": ")
		b.WriteString(snippet)
	}
	return b.String()
}

func joinPairs(pairs []model.CodeMessage) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = "[" + p.Code + "] " + p.Message
	}
	return strings.Join(parts, "; ")
}
