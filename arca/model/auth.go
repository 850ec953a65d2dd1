package model

import "time"

// Credential is the token/sign pair obtained from the authentication
// service, presented on every invoicing call. The wire names of the JSON
// fields match the on-disk cache format.
type Credential struct {
	Token      string    `json:"token"`
	Sign       string    `json:"sign"`
	Expiration time.Time `json:"expiration"`
}

// Valid reports whether the credential can still be presented. A credential
// inside the safety margin before its expiration counts as expired, so we
// never race the remote clock.
func (c *Credential) Valid(now time.Time, margin time.Duration) bool {
	if c == nil || c.Token == "" || c.Sign == "" || c.Expiration.IsZero() {
		return false
	}
	return now.Before(c.Expiration.Add(-margin))
}
