package warera

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"warerabot/internal/common"
)

// Routes inside the WarEra API
const (
	routeAllCountries  = "/country.getAllCountries"
	routeWarsByCountry = "/war.getWarsByCountry"
)

// Client talks to the WarEra REST API through a rate limited proxy.
// Country data changes slowly, so the last successful fetch is kept as a
// cache that commands can fall back on when the rate budget is spent
type Client struct {
	baseURL   string
	proxy     common.Proxy
	countries map[CountryID]Country
}

func NewClient(baseURL string, restrictions []common.Restriction) *Client {
	return &Client{
		baseURL:   baseURL,
		proxy:     common.NewProxy(map[string]string{"Accept": "application/json"}, restrictions),
		countries: map[CountryID]Country{},
	}
}

// GetCountries fetches all countries. vital requests may wait for the rate
// limiter; the background poller passes vital=false and just skips a cycle
// when the budget is spent
func (client *Client) GetCountries(vital bool) ([]Country, error) {

	data, err := client.proxy.Request(client.baseURL+routeAllCountries, vital)
	if err != nil {
		return nil, err
	}

	countries, err := UnmarshalCountries(data)
	if err != nil {
		return nil, err
	}
	log.Debug().Msg(fmt.Sprintf("Fetched %d countries", len(countries)))

	// Update cache
	for _, country := range countries {
		client.countries[country.ID] = country
	}
	return countries, nil
}

// GetCountry returns one country, from the cache when possible
func (client *Client) GetCountry(id CountryID) (Country, error) {

	// Check cache
	if country, ok := client.countries[id]; ok {
		return country, nil
	}
	log.Debug().Msg(fmt.Sprintf("Country %s is not in the cache", id))

	if _, err := client.GetCountries(true); err != nil {
		return Country{}, err
	}
	country, ok := client.countries[id]
	if !ok {
		return Country{}, fmt.Errorf("could not find country %s", id)
	}
	return country, nil
}

// GetActiveWars fetches the wars a country is currently involved in
func (client *Client) GetActiveWars(id CountryID, vital bool) ([]War, error) {

	endpoint := fmt.Sprintf("%s%s?input=%s", client.baseURL, routeWarsByCountry, url.QueryEscape(string(id)))
	data, err := client.proxy.Request(endpoint, vital)
	if err != nil {
		return nil, err
	}

	wars, err := UnmarshalWars(data)
	if err != nil {
		return nil, err
	}

	active := wars[:0]
	for _, war := range wars {
		if war.Active {
			active = append(active, war)
		}
	}
	log.Debug().Msg(fmt.Sprintf("Country %s has %d active wars", id, len(active)))
	return active, nil
}

// TopProducers returns, per specialized item, the country with the highest
// production bonus among the provided countries
func TopProducers(countries []Country) map[string]Country {
	tops := map[string]Country{}
	for _, country := range countries {
		if country.SpecializedItem == "" {
			continue
		}
		current, ok := tops[country.SpecializedItem]
		if !ok || country.ProductionBonus > current.ProductionBonus {
			tops[country.SpecializedItem] = country
		}
	}
	return tops
}
