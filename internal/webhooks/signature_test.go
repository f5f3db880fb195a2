package webhooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignVerify(t *testing.T) {
	body := []byte(`{"id":"evt"}`)
	sig := SignHMAC("k", body)
	assert.Len(t, sig, 64)
	assert.True(t, VerifyHMAC("k", body, sig))
	assert.False(t, VerifyHMAC("other", body, sig))
	assert.False(t, VerifyHMAC("k", body, "not-hex"))
}
