// Package tpl holds the SOAP body fragments sent to the authentication and
// invoicing services, merged through util.MergeTemplate.
package tpl

// LoginTicketRequest is the access ticket (TRA) that gets signed and
// exchanged for a credential.
var LoginTicketRequest = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<loginTicketRequest version="1.0">` +
	`<header>` +
	`<uniqueId>{{.UniqueID}}</uniqueId>` +
	`<generationTime>{{.GenerationTime}}</generationTime>` +
	`<expirationTime>{{.ExpirationTime}}</expirationTime>` +
	`</header>` +
	`<service>{{.Service}}</service>` +
	`</loginTicketRequest>`

// LoginCms submits the signed ticket. Cms is the DER-encoded signed
// envelope, base64-encoded in place.
var LoginCms = `<loginCms xmlns="http://wsaa.view.sua.dvadac.desein.afip.gov">` +
	`<in0>{{base64 .Cms}}</in0>` +
	`</loginCms>`

var auth = `<Auth>` +
	`<Token>{{.Token}}</Token>` +
	`<Sign>{{.Sign}}</Sign>` +
	`<Cuit>{{.Cuit}}</Cuit>` +
	`</Auth>`

// LastAuthorized queries the last authorized invoice number for a point of
// sale.
var LastAuthorized = `<FECompUltimoAutorizado xmlns="http://ar.gov.afip.dif.FEV1/">` +
	auth +
	`<PtoVta>{{.PointOfSale}}</PtoVta>` +
	`<CbteTipo>{{.InvoiceType}}</CbteTipo>` +
	`</FECompUltimoAutorizado>`

// CAERequest submits a single-record batch for authorization. Amount fields
// are preformatted with two decimals.
var CAERequest = `<FECAESolicitar xmlns="http://ar.gov.afip.dif.FEV1/">` +
	auth +
	`<FeCAEReq>` +
	`<FeCabReq>` +
	`<CantReg>1</CantReg>` +
	`<PtoVta>{{.PointOfSale}}</PtoVta>` +
	`<CbteTipo>{{.InvoiceType}}</CbteTipo>` +
	`</FeCabReq>` +
	`<FeDetReq>` +
	`<FECAEDetRequest>` +
	`<Concepto>{{.Concept}}</Concepto>` +
	`<DocTipo>{{.DocType}}</DocTipo>` +
	`<DocNro>{{.RecipientTaxID}}</DocNro>` +
	`<CbteDesde>{{.Sequence}}</CbteDesde>` +
	`<CbteHasta>{{.Sequence}}</CbteHasta>` +
	`<CbteFch>{{.IssueDate}}</CbteFch>` +
	`<ImpTotal>{{.Amount}}</ImpTotal>` +
	`<ImpTotConc>0.00</ImpTotConc>` +
	`<ImpNeto>{{.Amount}}</ImpNeto>` +
	`<ImpOpEx>0.00</ImpOpEx>` +
	`<ImpIVA>0.00</ImpIVA>` +
	`<ImpTrib>0.00</ImpTrib>` +
	`<FchServDesde>{{.IssueDate}}</FchServDesde>` +
	`<FchServHasta>{{.IssueDate}}</FchServHasta>` +
	`<FchVtoPago>{{.IssueDate}}</FchVtoPago>` +
	`<MonId>{{.Currency}}</MonId>` +
	`<MonCotiz>1</MonCotiz>` +
	`<CondicionIVAReceptorId>{{.VATCondition}}</CondicionIVAReceptorId>` +
	`</FECAEDetRequest>` +
	`</FeDetReq>` +
	`</FeCAEReq>` +
	`</FECAESolicitar>`

// InvoiceQuery looks up a previously authorized invoice by number.
var InvoiceQuery = `<FECompConsultar xmlns="http://ar.gov.afip.dif.FEV1/">` +
	auth +
	`<FeCompConsReq>` +
	`<CbteTipo>{{.InvoiceType}}</CbteTipo>` +
	`<CbteNro>{{.Sequence}}</CbteNro>` +
	`<PtoVta>{{.PointOfSale}}</PtoVta>` +
	`</FeCompConsReq>` +
	`</FECompConsultar>`
