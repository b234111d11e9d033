package rpc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	c, err := NewClient("d")
	require.NoError(t, err)
	assert.Equal(t, "https://api.devnet.solana.com", c.URL)

	c, err = NewClient("http://127.0.0.1:8899")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8899", c.URL)

	_, err = NewClient("not a url")
	assert.Error(t, err)
}

func TestCheckVersion(t *testing.T) {
	v, err := checkVersion("1.18.26")
	require.NoError(t, err)
	assert.Equal(t, "1.18.26", v.String())

	_, err = checkVersion("2.1.0")
	require.NoError(t, err)

	_, err = checkVersion("1.14.29")
	assert.True(t, errors.Is(err, ErrUnsupportedCluster))

	_, err = checkVersion("agave")
	assert.Error(t, err)
}

func TestTransactionReportFailed(t *testing.T) {
	assert.False(t, (&TransactionReport{}).Failed())
	assert.True(t, (&TransactionReport{Err: `{"InstructionError":[0,"Custom"]}`}).Failed())
}
