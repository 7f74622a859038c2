package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewSignatureVerifier("test-secret")

	sig := v.Sign("gw_order_1", "gw_pay_1")
	assert.NoError(t, v.Verify("gw_order_1", "gw_pay_1", sig))
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	v := NewSignatureVerifier("test-secret")
	sig := v.Sign("gw_order_1", "gw_pay_1")

	// Flip one nibble of the hex signature.
	tampered := []byte(sig)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}

	err := v.Verify("gw_order_1", "gw_pay_1", string(tampered))
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyRejectsSwappedIDs(t *testing.T) {
	v := NewSignatureVerifier("test-secret")
	sig := v.Sign("gw_order_1", "gw_pay_1")

	require.Error(t, v.Verify("gw_pay_1", "gw_order_1", sig))
	require.Error(t, v.Verify("gw_order_1", "gw_pay_2", sig))
}

func TestVerifyDifferentSecrets(t *testing.T) {
	sig := NewSignatureVerifier("secret-a").Sign("gw_order_1", "gw_pay_1")
	err := NewSignatureVerifier("secret-b").Verify("gw_order_1", "gw_pay_1", sig)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}
