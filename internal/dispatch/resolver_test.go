package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverResolvesConfiguredAlias(t *testing.T) {
	resolver := NewResolver(map[string]string{"mod-log": "123456"})

	id, err := resolver.Resolve("mod-log")
	require.NoError(t, err)
	assert.Equal(t, "123456", id)
}

func TestResolverUnknownAlias(t *testing.T) {
	resolver := NewResolver(map[string]string{"mod-log": "123456"})

	_, err := resolver.Resolve("does-not-exist")
	var unknown *UnknownAliasError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "does-not-exist", unknown.Alias)
}

func TestResolverCopiesTheMapping(t *testing.T) {
	aliases := map[string]string{"welcome": "111"}
	resolver := NewResolver(aliases)
	aliases["welcome"] = "222"

	id, err := resolver.Resolve("welcome")
	require.NoError(t, err)
	assert.Equal(t, "111", id)
}
