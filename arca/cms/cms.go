// Package cms produces the CMS SignedData envelope required around the
// access ticket request, equivalent to `openssl cms -sign -nodetach
// -outform DER`.
package cms

import (
	"crypto"
	"crypto/x509"

	"github.com/go-faster/errors"
	"go.mozilla.org/pkcs7"
)

// Sign wraps data in an attached CMS SignedData structure, signed with the
// given certificate and key, and returns the DER encoding.
func Sign(data []byte, cert *x509.Certificate, key crypto.Signer) ([]byte, error) {
	signed, err := pkcs7.NewSignedData(data)
	if err != nil {
		return nil, errors.Wrap(err, "init signed data")
	}
	if err := signed.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, errors.Wrap(err, "add signer")
	}
	der, err := signed.Finish()
	if err != nil {
		return nil, errors.Wrap(err, "encode signed data")
	}
	return der, nil
}
