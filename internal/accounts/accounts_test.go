package accounts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossrail/internal/rails"
	"crossrail/pkg/platform/sentinel"
)

func TestStatic_Resolve(t *testing.T) {
	resolver := NewStatic()
	resolver.Add("user-1", "us", rails.AccountDetails{
		RoutingNumber: "021000021",
		AccountNumber: "123456789",
		HolderName:    "Ada Lovelace",
	})

	details, err := resolver.Resolve(context.Background(), "user-1", "US")
	require.NoError(t, err)
	assert.Equal(t, "021000021", details.RoutingNumber)

	_, err = resolver.Resolve(context.Background(), "user-1", "MX")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = resolver.Resolve(context.Background(), "user-2", "US")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"user-1": {
			"US": {"routing_number": "021000021", "account_number": "123456789", "holder_name": "Ada Lovelace"},
			"MX": {"account_number": "032180000118359719", "holder_name": "Ada Lovelace"}
		}
	}`), 0o600))

	resolver, err := LoadFile(path)
	require.NoError(t, err)

	us, err := resolver.Resolve(context.Background(), "user-1", "US")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", us.HolderName)

	mx, err := resolver.Resolve(context.Background(), "user-1", "mx")
	require.NoError(t, err)
	assert.Len(t, mx.AccountNumber, 18)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
