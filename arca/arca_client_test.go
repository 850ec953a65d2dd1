package arca

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcafe/go-arca-client/arca/auth"
	"github.com/arcafe/go-arca-client/arca/model"
)

type stubAuth struct{ cred *model.Credential }

func (s stubAuth) Authenticate(context.Context) (*model.Credential, error) {
	return s.cred, nil
}

// stubInvoices fakes the invoicing service for facade tests.
type stubInvoices struct {
	last    map[int]int
	records map[int][]model.InvoiceRecord

	authorized []model.InvoiceRequest
	lastSeen   int // LastAuthorized result observed right before a request
}

func (s *stubInvoices) LastAuthorized(_ context.Context, _ *model.Credential, _ string, pos int) (int, error) {
	s.lastSeen = s.last[pos]
	return s.last[pos], nil
}

func (s *stubInvoices) RequestAuthorization(_ context.Context, _ *model.Credential, _ string, req model.InvoiceRequest) (*model.AuthorizationResult, error) {
	s.authorized = append(s.authorized, req)
	return &model.AuthorizationResult{
		Code:     "76123456789012",
		Sequence: req.Sequence,
		Outcome:  model.OutcomeApproved,
	}, nil
}

func (s *stubInvoices) Query(_ context.Context, _ *model.Credential, _ string, pos, seq int) (*model.InvoiceRecord, error) {
	for _, rec := range s.records[pos] {
		if rec.Sequence == seq {
			return &rec, nil
		}
	}
	return nil, assert.AnError
}

func (s *stubInvoices) QueryRange(_ context.Context, _ *model.Credential, _ string, pos, from, to int) ([]model.InvoiceRecord, error) {
	var out []model.InvoiceRecord
	for _, rec := range s.records[pos] {
		if rec.Sequence >= from && rec.Sequence <= to {
			out = append(out, rec)
		}
	}
	return out, nil
}

func newTestClient(t *testing.T, inv *stubInvoices) (*Client, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	cred := &model.Credential{Token: "t", Sign: "s", Expiration: clock.Now().Add(12 * time.Hour)}
	provider := auth.NewProvider(stubAuth{cred}, auth.NewFileCache(t.TempDir(), clock), "20123456789", "homo", clock)
	return &Client{
		cuit:     "20123456789",
		env:      Testing,
		provider: provider,
		invoices: inv,
		clock:    clock,
	}, clock
}

func TestNewClient_RequiresCUIT(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrNoCUIT)
}

func TestPointOfSaleFromNumber(t *testing.T) {
	tests := []struct {
		number string
		want   int
		ok     bool
	}{
		{"C00002-00000144", 2, true},
		{"c00011-00000001", 11, true},
		{"B00002-00000144", 0, false},
		{"garbage", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		pos, err := PointOfSaleFromNumber(tt.number)
		if tt.ok {
			require.NoError(t, err, tt.number)
			assert.Equal(t, tt.want, pos, tt.number)
		} else {
			assert.ErrorIs(t, err, ErrNoPointOfSale, tt.number)
		}
	}
}

func TestIssue_SequenceIsLastPlusOne(t *testing.T) {
	inv := &stubInvoices{last: map[int]int{2: 41}}
	client, _ := newTestClient(t, inv)

	line := model.InvoiceLine{
		Number:         "C00002-00000042",
		IssueDate:      "16/02/2026",
		Amount:         decimal.RequireFromString("404315.00"),
		RecipientTaxID: "33-54445107-9",
	}

	res, err := client.Issue(context.Background(), line)
	require.NoError(t, err)

	require.Len(t, inv.authorized, 1)
	req := inv.authorized[0]
	assert.Equal(t, 42, req.Sequence, "last authorized number observed immediately before submission, plus one")
	assert.Equal(t, 41, inv.lastSeen)
	assert.Equal(t, 2, req.PointOfSale)
	assert.Equal(t, "20260216", req.IssueDate)
	assert.Equal(t, 42, res.Sequence)
}

func TestIssue_BadDateFallsBackToToday(t *testing.T) {
	inv := &stubInvoices{last: map[int]int{2: 0}}
	client, clock := newTestClient(t, inv)

	line := model.InvoiceLine{Number: "C00002-00000001", IssueDate: "not a date"}

	_, err := client.Issue(context.Background(), line)
	require.NoError(t, err)

	require.Len(t, inv.authorized, 1)
	assert.Equal(t, clock.Now().Format("20060102"), inv.authorized[0].IssueDate)
}

func TestIssue_UnparseableNumberFails(t *testing.T) {
	client, _ := newTestClient(t, &stubInvoices{})

	_, err := client.Issue(context.Background(), model.InvoiceLine{Number: "nope"})
	assert.ErrorIs(t, err, ErrNoPointOfSale)
}

func record(pos, seq int, date string) model.InvoiceRecord {
	return model.InvoiceRecord{
		PointOfSale: pos,
		Sequence:    seq,
		IssueDate:   date,
		AuthCode:    "76123456789012",
		Outcome:     model.OutcomeApproved,
	}
}

func TestHistory_FiltersByIssueDate(t *testing.T) {
	inv := &stubInvoices{
		last: map[int]int{1: 3},
		records: map[int][]model.InvoiceRecord{
			1: {
				record(1, 1, "20260110"),
				record(1, 2, "20260215"),
				record(1, 3, "20260301"),
			},
		},
	}
	client, _ := newTestClient(t, inv)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	out, err := client.History(context.Background(), from, to, []int{1})
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, "20260215", out[0].IssueDate)
}

func TestHistory_WindowIsInclusive(t *testing.T) {
	inv := &stubInvoices{
		last: map[int]int{1: 2},
		records: map[int][]model.InvoiceRecord{
			1: {record(1, 1, "20260201"), record(1, 2, "20260228")},
		},
	}
	client, _ := newTestClient(t, inv)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	out, err := client.History(context.Background(), from, to, []int{1})
	require.NoError(t, err)
	assert.Len(t, out, 2, "both boundary dates included")
}

func TestHistory_FailsOpenOnUnparseableDate(t *testing.T) {
	inv := &stubInvoices{
		last: map[int]int{1: 2},
		records: map[int][]model.InvoiceRecord{
			1: {record(1, 1, "banana"), record(1, 2, "20250101")},
		},
	}
	client, _ := newTestClient(t, inv)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	out, err := client.History(context.Background(), from, to, []int{1})
	require.NoError(t, err)

	require.Len(t, out, 1, "record outside the window dropped, unparseable one kept")
	assert.Equal(t, "banana", out[0].IssueDate)
}

func TestHistory_SkipsEmptyPointsOfSale(t *testing.T) {
	inv := &stubInvoices{
		last: map[int]int{1: 0, 2: 1},
		records: map[int][]model.InvoiceRecord{
			2: {record(2, 1, "20260215")},
		},
	}
	client, _ := newTestClient(t, inv)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	out, err := client.History(context.Background(), from, to, []int{1, 2})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].PointOfSale)
}

func TestHistory_SortedByDateThenSequenceDescending(t *testing.T) {
	inv := &stubInvoices{
		last: map[int]int{1: 2, 2: 1},
		records: map[int][]model.InvoiceRecord{
			1: {record(1, 1, "20260210"), record(1, 2, "20260220")},
			2: {record(2, 1, "20260220")},
		},
	}
	client, _ := newTestClient(t, inv)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	out, err := client.History(context.Background(), from, to, []int{1, 2})
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, "20260220", out[0].IssueDate)
	assert.Equal(t, 2, out[0].Sequence, "same date, higher sequence first")
	assert.Equal(t, "20260220", out[1].IssueDate)
	assert.Equal(t, 1, out[1].Sequence)
	assert.Equal(t, "20260210", out[2].IssueDate)
}

func TestHistory_DefaultTrailingWindow(t *testing.T) {
	clockProbe := clockwork.NewFakeClock()
	recent := clockProbe.Now().Format("20060102")
	old := clockProbe.Now().AddDate(0, 0, -45).Format("20060102")

	inv := &stubInvoices{
		last: map[int]int{1: 2},
		records: map[int][]model.InvoiceRecord{
			1: {record(1, 1, old), record(1, 2, recent)},
		},
	}
	client, _ := newTestClient(t, inv)

	out, err := client.History(context.Background(), time.Time{}, time.Time{}, []int{1})
	require.NoError(t, err)

	require.Len(t, out, 1, "45-day-old record falls outside the default 30-day window")
	assert.Equal(t, recent, out[0].IssueDate)
}
