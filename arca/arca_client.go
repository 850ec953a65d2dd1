package arca

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"

	"github.com/arcafe/go-arca-client/arca/auth"
	"github.com/arcafe/go-arca-client/arca/invoice"
	"github.com/arcafe/go-arca-client/arca/model"
	"github.com/arcafe/go-arca-client/arca/mutex"
	"github.com/arcafe/go-arca-client/arca/qr"
	"github.com/arcafe/go-arca-client/arca/soap"
	"github.com/arcafe/go-arca-client/arca/util"
)

const (
	defaultCacheDir      = ".token_cache"
	defaultHistoryWindow = 30 // days
)

// Config carries everything the facade needs. CUIT is the certificate
// owner's identifier used on every remote call; the commercial issuer shown
// on rendered invoices may differ and never reaches this client.
type Config struct {
	CertPath    string
	KeyPath     string
	KeyPassword string
	CUIT        string
	Env         Environment

	// CacheDir is where credentials are persisted across restarts.
	// Defaults to .token_cache in the working directory.
	CacheDir string

	// InsecureSkipVerify disables TLS verification on the transport. The
	// staging endpoint needs it; keep it off in production.
	InsecureSkipVerify bool

	// HistoryConcurrency bounds parallel lookups during history range
	// scans. Zero selects a conservative default.
	HistoryConcurrency int
}

// Client is the single entry point for external collaborators. It owns the
// credential cache and environment selection and exposes invoice issuance
// and history retrieval.
//
// A Client is safe for concurrent use. Issuance against one point of sale is
// serialized internally; callers sharing a point of sale across processes
// must still expect duplicate-sequence rejections from the remote side.
type Client struct {
	cuit     string
	env      Environment
	provider *auth.Provider
	invoices invoice.Service
	clock    clockwork.Clock

	issueMu mutex.KeyedRWMutex[issueKey]
}

type issueKey struct {
	cuit        string
	pointOfSale int
}

func NewClient(cfg Config) (*Client, error) {
	cuit := util.CleanCUIT(cfg.CUIT)
	if cuit == "" {
		return nil, ErrNoCUIT
	}

	var opts []soap.Option
	if cfg.InsecureSkipVerify {
		opts = append(opts, soap.WithInsecureSkipVerify())
	}
	caller := soap.NewClient(opts...)

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = defaultCacheDir
	}

	clock := clockwork.NewRealClock()
	authSvc := auth.NewService(caller, cfg.Env.AuthEndpoint(), cfg.CertPath, cfg.KeyPath, []byte(cfg.KeyPassword))
	cache := auth.NewFileCache(cacheDir, clock)

	return &Client{
		cuit:     cuit,
		env:      cfg.Env,
		provider: auth.NewProvider(authSvc, cache, cuit, cfg.Env.Name(), clock),
		invoices: invoice.NewService(caller, cfg.Env.InvoiceEndpoint(), cfg.HistoryConcurrency),
		clock:    clock,
	}, nil
}

// LastInvoiceNumber returns the last authorized number for a point of sale.
// Zero means no invoices issued yet.
func (c *Client) LastInvoiceNumber(ctx context.Context, pointOfSale int) (int, error) {
	cred, err := c.provider.Credential(ctx)
	if err != nil {
		return 0, err
	}
	return c.invoices.LastAuthorized(ctx, cred, c.cuit, pointOfSale)
}

var pointOfSaleRe = regexp.MustCompile(`^[Cc](\d+)-`)

// PointOfSaleFromNumber extracts the point of sale from a composite invoice
// identifier: "C00002-00000144" yields 2.
func PointOfSaleFromNumber(number string) (int, error) {
	m := pointOfSaleRe.FindStringSubmatch(number)
	if m == nil {
		return 0, errors.Wrapf(ErrNoPointOfSale, "%q", number)
	}
	pos, err := strconv.Atoi(m[1])
	if err != nil || pos <= 0 {
		return 0, errors.Wrapf(ErrNoPointOfSale, "%q", number)
	}
	return pos, nil
}

// Issue authorizes one invoice line. The sequence number is resolved as the
// last authorized number plus one immediately before submission; issuance
// for the same (CUIT, point of sale) is serialized in-process so concurrent
// callers cannot read the same last number. Across processes the remote
// service is authoritative and rejects duplicates.
func (c *Client) Issue(ctx context.Context, line model.InvoiceLine) (*model.AuthorizationResult, error) {

	pos, err := PointOfSaleFromNumber(line.Number)
	if err != nil {
		return nil, err
	}

	issueDate, err := util.CompactDate(line.IssueDate)
	if err != nil {
		// an absent or malformed date falls back to today rather than
		// refusing the line
		issueDate = c.clock.Now().Format("20060102")
		logger.Warnf("invoice %s has no parseable issue date, using %s", line.Number, issueDate)
	}

	key := issueKey{cuit: c.cuit, pointOfSale: pos}
	c.issueMu.Lock(key)
	defer c.issueMu.Unlock(key)

	cred, err := c.provider.Credential(ctx)
	if err != nil {
		return nil, err
	}

	last, err := c.invoices.LastAuthorized(ctx, cred, c.cuit, pos)
	if err != nil {
		return nil, err
	}

	req := model.InvoiceRequest{
		PointOfSale:    pos,
		Sequence:       last + 1,
		IssueDate:      issueDate,
		Amount:         line.Amount,
		RecipientTaxID: line.RecipientTaxID,
	}

	return c.invoices.RequestAuthorization(ctx, cred, c.cuit, req)
}

// History fetches all invoices issued in [from, to] (inclusive, by issue
// date) across the given points of sale. Zero from/to default to the
// trailing 30 days ending today. The remote query has no date filter, so
// each point of sale is enumerated from 1 to its last number and filtered
// client-side; a record whose date cannot be parsed is included rather than
// dropped. Results are sorted by issue date descending, then sequence
// descending.
func (c *Client) History(ctx context.Context, from, to time.Time, pointsOfSale []int) ([]model.InvoiceRecord, error) {

	now := c.clock.Now()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultHistoryWindow)
	}

	cred, err := c.provider.Credential(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.InvoiceRecord
	for _, pos := range pointsOfSale {
		last, err := c.invoices.LastAuthorized(ctx, cred, c.cuit, pos)
		if err != nil {
			return nil, err
		}
		if last == 0 {
			continue
		}

		records, err := c.invoices.QueryRange(ctx, cred, c.cuit, pos, 1, last)
		if err != nil {
			return nil, err
		}

		for _, rec := range records {
			day, perr := util.ParseCompactDate(rec.IssueDate)
			if perr != nil {
				// fail open: better an extra row than a silently missing one
				out = append(out, rec)
				continue
			}
			if !day.Before(truncateDay(from)) && !day.After(to) {
				out = append(out, rec)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		di, _ := util.ParseCompactDate(out[i].IssueDate)
		dj, _ := util.ParseCompactDate(out[j].IssueDate)
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return out[i].Sequence > out[j].Sequence
	})

	return out, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// InvoiceQR builds the fiscal QR verification URL and PNG for an authorized
// invoice record.
func (c *Client) InvoiceQR(rec model.InvoiceRecord, size int) (string, []byte, error) {
	payload, err := qr.FromRecord(c.cuit, rec)
	if err != nil {
		return "", nil, err
	}
	url, err := qr.VerificationURL(payload)
	if err != nil {
		return "", nil, err
	}
	png, err := qr.PNG(payload, size)
	if err != nil {
		return "", nil, err
	}
	return url, png, nil
}
