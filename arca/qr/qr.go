// Package qr builds the fiscal QR code that rendered invoices must carry:
// a verification URL with the authorization data base64-encoded as JSON.
package qr

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/go-faster/errors"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/sirupsen/logrus"

	"github.com/arcafe/go-arca-client/arca/model"
	"github.com/arcafe/go-arca-client/arca/util"
)

var logger = logrus.WithField("component", "arca.qr")

const verificationBase = "https://www.afip.gob.ar/fe/qr/?p="

// Payload is the published QR payload format, version 1. Field names are
// part of the format and must not change.
type Payload struct {
	Ver        int     `json:"ver"`
	Fecha      string  `json:"fecha"` // YYYY-MM-DD
	Cuit       int64   `json:"cuit"`
	PtoVta     int     `json:"ptoVta"`
	TipoCmp    int     `json:"tipoCmp"`
	NroCmp     int     `json:"nroCmp"`
	Importe    float64 `json:"importe"`
	Moneda     string  `json:"moneda"`
	Ctz        float64 `json:"ctz"`
	TipoDocRec int     `json:"tipoDocRec,omitempty"`
	NroDocRec  int64   `json:"nroDocRec,omitempty"`
	TipoCodAut string  `json:"tipoCodAut"`
	CodAut     int64   `json:"codAut"`
}

// FromRecord assembles the payload for an authorized invoice issued by the
// given CUIT.
func FromRecord(cuit string, rec model.InvoiceRecord) (Payload, error) {

	issuer, err := strconv.ParseInt(util.CleanCUIT(cuit), 10, 64)
	if err != nil {
		return Payload{}, errors.Wrapf(err, "invalid issuer CUIT %q", cuit)
	}

	codAut, err := strconv.ParseInt(rec.AuthCode, 10, 64)
	if err != nil {
		return Payload{}, errors.Wrapf(err, "invalid authorization code %q", rec.AuthCode)
	}

	day, err := util.ParseCompactDate(rec.IssueDate)
	if err != nil {
		return Payload{}, errors.Wrapf(err, "invalid issue date %q", rec.IssueDate)
	}

	p := Payload{
		Ver:        1,
		Fecha:      day.Format("2006-01-02"),
		Cuit:       issuer,
		PtoVta:     rec.PointOfSale,
		TipoCmp:    model.InvoiceTypeC,
		NroCmp:     rec.Sequence,
		Importe:    rec.Amount.InexactFloat64(),
		Moneda:     model.CurrencyARS,
		Ctz:        1,
		TipoCodAut: "E", // CAE
		CodAut:     codAut,
	}

	if recipient, err := strconv.ParseInt(util.CleanCUIT(rec.RecipientTaxID), 10, 64); err == nil {
		p.TipoDocRec = model.DocTypeCUIT
		p.NroDocRec = recipient
	}

	return p, nil
}

// VerificationURL encodes the payload into the public verification URL.
func VerificationURL(p Payload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "encode QR payload")
	}
	return verificationBase + base64.StdEncoding.EncodeToString(b), nil
}

// PNG renders the verification URL as a QR image of the given pixel size.
func PNG(p Payload, size int) ([]byte, error) {
	url, err := VerificationURL(p)
	if err != nil {
		return nil, err
	}
	logger.Debugf("QR url: %s", url)
	return qrcode.Encode(url, qrcode.Medium, size)
}
