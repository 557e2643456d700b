package response

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	ok := OKT(map[string]int{"n": 1})
	require.Equal(t, APIResponseCodeOK, ok.Code)
	require.Equal(t, "ok", ok.Message)

	e := ErrorT[any](APIResponseCodePaymentFailed, "declined")
	require.Equal(t, "payment failed", e.Message)
	require.Equal(t, "declined", e.Data)

	require.Equal(t, "unexpected error", APIResponseCode(12345).Message())
}
