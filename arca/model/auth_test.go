package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialValid(t *testing.T) {
	now := time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)
	margin := 5 * time.Minute

	cred := &Credential{Token: "t", Sign: "s", Expiration: now.Add(time.Hour)}
	assert.True(t, cred.Valid(now, margin))

	var nilCred *Credential
	assert.False(t, nilCred.Valid(now, margin))

	assert.False(t, (&Credential{Sign: "s", Expiration: now.Add(time.Hour)}).Valid(now, margin))
	assert.False(t, (&Credential{Token: "t", Expiration: now.Add(time.Hour)}).Valid(now, margin))

	// expires inside the margin
	assert.False(t, (&Credential{Token: "t", Sign: "s", Expiration: now.Add(4 * time.Minute)}).Valid(now, margin))
	assert.False(t, (&Credential{Token: "t", Sign: "s", Expiration: now.Add(margin)}).Valid(now, margin))
	assert.True(t, (&Credential{Token: "t", Sign: "s", Expiration: now.Add(margin + time.Second)}).Valid(now, margin))
}
