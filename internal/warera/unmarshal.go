package warera

import (
	"encoding/json"
	"fmt"
)

// The WarEra API wraps its payloads in varying envelopes depending on the
// route: a bare list, {"data": [...]}, or {"result": {"data": [...]}}.
// unwrapList digs the actual list out of any of them
func unwrapList(data []byte) ([]json.RawMessage, error) {

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var envelope struct {
		Data   []json.RawMessage `json:"data"`
		Items  []json.RawMessage `json:"items"`
		Result struct {
			Data []json.RawMessage `json:"data"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("response is neither a list nor a known envelope: %w", err)
	}
	switch {
	case envelope.Data != nil:
		return envelope.Data, nil
	case envelope.Result.Data != nil:
		return envelope.Result.Data, nil
	case envelope.Items != nil:
		return envelope.Items, nil
	}
	return nil, fmt.Errorf("no list found in response envelope")
}

type rawCountry struct {
	ID      string `json:"id"`
	AltID   string `json:"_id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Economy struct {
		SpecializedItem string `json:"specializedItem"`
	} `json:"economy"`
	SpecializedItem string  `json:"specializedItem"`
	ProductionBonus float64 `json:"productionBonus"`
	Rankings        struct {
		CountryProductionBonus struct {
			Value float64 `json:"value"`
		} `json:"countryProductionBonus"`
	} `json:"rankings"`
}

func (raw rawCountry) toCountry() Country {
	country := Country{
		Code:            raw.Code,
		Name:            raw.Name,
		SpecializedItem: raw.SpecializedItem,
		ProductionBonus: raw.ProductionBonus,
	}
	country.ID = CountryID(raw.ID)
	if country.ID == "" {
		country.ID = CountryID(raw.AltID)
	}
	if country.SpecializedItem == "" {
		country.SpecializedItem = raw.Economy.SpecializedItem
	}
	// The rankings entry is the authoritative bonus when present
	if raw.Rankings.CountryProductionBonus.Value != 0 {
		country.ProductionBonus = raw.Rankings.CountryProductionBonus.Value
	}
	return country
}

// UnmarshalCountries decodes the /country.getAllCountries payload
func UnmarshalCountries(data []byte) ([]Country, error) {
	list, err := unwrapList(data)
	if err != nil {
		return nil, err
	}
	countries := make([]Country, 0, len(list))
	for _, item := range list {
		var raw rawCountry
		if err := json.Unmarshal(item, &raw); err != nil {
			return nil, fmt.Errorf("could not decode country object: %w", err)
		}
		country := raw.toCountry()
		if country.ID == "" {
			continue
		}
		countries = append(countries, country)
	}
	return countries, nil
}

// UnmarshalWars decodes the /war.getWarsByCountry payload
func UnmarshalWars(data []byte) ([]War, error) {
	list, err := unwrapList(data)
	if err != nil {
		return nil, err
	}
	wars := make([]War, 0, len(list))
	for _, item := range list {
		var raw struct {
			ID       string `json:"id"`
			AltID    string `json:"_id"`
			Attacker string `json:"attacker"`
			Defender string `json:"defender"`
			Status   string `json:"status"`
			Active   *bool  `json:"active"`
		}
		if err := json.Unmarshal(item, &raw); err != nil {
			return nil, fmt.Errorf("could not decode war object: %w", err)
		}
		war := War{
			ID:       WarID(raw.ID),
			Attacker: CountryID(raw.Attacker),
			Defender: CountryID(raw.Defender),
		}
		if war.ID == "" {
			war.ID = WarID(raw.AltID)
		}
		switch {
		case raw.Active != nil:
			war.Active = *raw.Active
		default:
			war.Active = raw.Status == "" || raw.Status == "active" || raw.Status == "ongoing"
		}
		wars = append(wars, war)
	}
	return wars, nil
}
