package warera

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warerabot/internal/common"
)

const countriesPayload = `{"result": {"data": [
	{"id": "nl", "code": "NL", "name": "Netherlands", "specializedItem": "steel", "productionBonus": 12.5},
	{"id": "be", "code": "BE", "name": "Belgium", "specializedItem": "food", "productionBonus": 8.0}
]}}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	restrictions := []common.Restriction{{Requests: 100, Duration: time.Minute}}
	return NewClient(server.URL, restrictions)
}

func TestGetCountriesFetchesAndCaches(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(countriesPayload))
	})

	countries, err := client.GetCountries(false)
	require.NoError(t, err)
	assert.Len(t, countries, 2)
	assert.Equal(t, int32(1), requests.Load())

	// The fetch filled the cache, so a lookup needs no further request
	country, err := client.GetCountry("be")
	require.NoError(t, err)
	assert.Equal(t, "Belgium", country.Name)
	assert.Equal(t, int32(1), requests.Load())
}

func TestGetCountryFetchesOnCacheMiss(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(countriesPayload))
	})

	country, err := client.GetCountry("nl")
	require.NoError(t, err)
	assert.Equal(t, "steel", country.SpecializedItem)
	assert.Equal(t, int32(1), requests.Load())

	// Second lookup is served from the cache
	_, err = client.GetCountry("nl")
	require.NoError(t, err)
	assert.Equal(t, int32(1), requests.Load())
}

func TestGetCountryUnknownID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(countriesPayload))
	})

	_, err := client.GetCountry("atlantis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "atlantis")
}

func TestGetActiveWarsFiltersAndQueries(t *testing.T) {
	var gotInput string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotInput = r.URL.Query().Get("input")
		w.Write([]byte(`[
			{"id": "war-1", "attacker": "de", "defender": "nl", "active": true},
			{"id": "war-2", "attacker": "fr", "defender": "nl", "active": false}
		]`))
	})

	wars, err := client.GetActiveWars("nl", true)
	require.NoError(t, err)
	assert.Equal(t, "nl", gotInput)
	require.Len(t, wars, 1)
	assert.Equal(t, WarID("war-1"), wars[0].ID)
}

func TestClientReportsServerErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetCountries(false)
	assert.Error(t, err)
}
