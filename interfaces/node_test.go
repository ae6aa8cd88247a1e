package interfaces

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNodeID(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    NodeID
		wantErr bool
	}{
		{name: "first node", input: "1", want: 1},
		{name: "surrounding spaces", input: " 12 ", want: 12},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-3", wantErr: true},
		{name: "not a number", input: "node-1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := ParseNodeID(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidNodeID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, id)
		})
	}
}

func TestVerifyResultString(t *testing.T) {
	assert.Equal(t, "match", VerifyMatch.String())
	assert.Equal(t, "mismatch", VerifyMismatch.String())
	assert.Equal(t, "not found", VerifyNotFound.String())
	assert.Equal(t, "unknown", VerifyResult(42).String())
}

func TestNewStorageBackendLocation(t *testing.T) {
	loc, err := NewStorageBackendLocation("s3://AKID:SECRET@bucket/escrow?region=eu-west-1")
	require.NoError(t, err)
	assert.True(t, loc.IsS3())
	assert.Equal(t, "bucket", loc.Host)
	assert.Equal(t, "eu-west-1", loc.GetParam("region"))
	assert.NotEmpty(t, loc.Auth)

	loc, err = NewStorageBackendLocation("vault://127.0.0.1:8200/secret/ergo?tls=false")
	require.NoError(t, err)
	assert.True(t, loc.IsVault())
	assert.False(t, loc.GetParamBool("tls"))

	_, err = NewStorageBackendLocation("ipfs://127.0.0.1:5001")
	require.ErrorIs(t, err, ErrInvalidLocationURI)
}
