package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warerabot/internal/common"
	"warerabot/internal/templates"
	"warerabot/internal/warera"
)

func newCountryInfo(t *testing.T) *CountryInfo {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": "nl", "code": "NL", "name": "Netherlands", "specializedItem": "steel", "productionBonus": 12.5},
			{"id": "xx", "code": "XX", "name": "Nowhere"}
		]`))
	}))
	t.Cleanup(server.Close)
	client := warera.NewClient(server.URL, []common.Restriction{{Requests: 100, Duration: time.Minute}})

	dir := t.TempDir()
	body := `{"embeds": [{"title": "{{name}} ({{code}})", "description": "{{item}}: {{bonus}}%"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "land_info.json"), []byte(body), 0o644))
	tmpls, err := templates.NewStore(dir)
	require.NoError(t, err)

	return NewCountryInfo(client, tmpls, "nl")
}

func TestCountryLookupDefaultsToHome(t *testing.T) {
	handler := newCountryInfo(t)

	messages, err := handler.lookup(context.Background(), Request{})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Embeds, 1)
	assert.Equal(t, "Netherlands (NL)", messages[0].Embeds[0].Title)
	assert.Contains(t, messages[0].Embeds[0].Description, "steel")
}

func TestCountryLookupByArgument(t *testing.T) {
	handler := newCountryInfo(t)

	messages, err := handler.lookup(context.Background(), Request{Args: []string{"xx"}})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	// A country without a specialization still renders
	assert.Contains(t, messages[0].Embeds[0].Description, "geen")
}

func TestCountryLookupUnknownCountry(t *testing.T) {
	handler := newCountryInfo(t)

	messages, err := handler.lookup(context.Background(), Request{Args: []string{"atlantis"}})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Content, "atlantis")
}
