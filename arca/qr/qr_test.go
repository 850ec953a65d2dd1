package qr

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcafe/go-arca-client/arca/model"
)

func approvedRecord() model.InvoiceRecord {
	return model.InvoiceRecord{
		PointOfSale:    2,
		Sequence:       144,
		IssueDate:      "20260216",
		Amount:         decimal.RequireFromString("137520.50"),
		RecipientTaxID: "33-54445107-9",
		AuthCode:       "76123456789012",
		Outcome:        model.OutcomeApproved,
	}
}

func TestFromRecord(t *testing.T) {
	p, err := FromRecord("20-12345678-9", approvedRecord())
	require.NoError(t, err)

	assert.Equal(t, 1, p.Ver)
	assert.Equal(t, "2026-02-16", p.Fecha)
	assert.Equal(t, int64(20123456789), p.Cuit)
	assert.Equal(t, 2, p.PtoVta)
	assert.Equal(t, model.InvoiceTypeC, p.TipoCmp)
	assert.Equal(t, 144, p.NroCmp)
	assert.InDelta(t, 137520.50, p.Importe, 0.001)
	assert.Equal(t, model.CurrencyARS, p.Moneda)
	assert.Equal(t, "E", p.TipoCodAut)
	assert.Equal(t, int64(76123456789012), p.CodAut)
	assert.Equal(t, model.DocTypeCUIT, p.TipoDocRec)
	assert.Equal(t, int64(33544451079), p.NroDocRec)
}

func TestFromRecord_NoRecipient(t *testing.T) {
	rec := approvedRecord()
	rec.RecipientTaxID = ""

	p, err := FromRecord("20123456789", rec)
	require.NoError(t, err)

	assert.Zero(t, p.TipoDocRec)
	assert.Zero(t, p.NroDocRec)
}

func TestFromRecord_BadInputs(t *testing.T) {
	_, err := FromRecord("not-a-cuit", approvedRecord())
	assert.Error(t, err)

	rec := approvedRecord()
	rec.AuthCode = ""
	_, err = FromRecord("20123456789", rec)
	assert.Error(t, err)

	rec = approvedRecord()
	rec.IssueDate = "16/02/2026"
	_, err = FromRecord("20123456789", rec)
	assert.Error(t, err)
}

func TestVerificationURL(t *testing.T) {
	p, err := FromRecord("20123456789", approvedRecord())
	require.NoError(t, err)

	url, err := VerificationURL(p)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, verificationBase))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, verificationBase))
	require.NoError(t, err)

	var decoded Payload
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, p, decoded)
}

func TestPNG(t *testing.T) {
	p, err := FromRecord("20123456789", approvedRecord())
	require.NoError(t, err)

	png, err := PNG(p, 256)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	assert.Equal(t, "\x89PNG", string(png[:4]))
}
