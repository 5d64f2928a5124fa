package warera

import "fmt"

type CountryID string
type WarID string

// Country is the slice of the country payload the bot cares about
type Country struct {
	ID              CountryID
	Code            string
	Name            string
	SpecializedItem string
	ProductionBonus float64
}

// War is an armed conflict between two countries
type War struct {
	ID       WarID
	Attacker CountryID
	Defender CountryID
	Active   bool
}

// ThreatLevel grades how much trouble the country is in, derived from the
// number of active wars it is involved in. The names are the Dutch terms
// used in the threat level channel
type ThreatLevel int

const (
	ThreatMinimal ThreatLevel = iota + 1
	ThreatLimited
	ThreatSubstantial
	ThreatSevere
	ThreatCritical
)

var threatNames = map[ThreatLevel]string{
	ThreatMinimal:     "minimaal",
	ThreatLimited:     "beperkt",
	ThreatSubstantial: "aanzienlijk",
	ThreatSevere:      "ernstig",
	ThreatCritical:    "kritiek",
}

func (level ThreatLevel) String() string {
	if name, ok := threatNames[level]; ok {
		return name
	}
	return fmt.Sprintf("level %d", int(level))
}

// ThreatFromWars maps a count of active wars to a threat level
func ThreatFromWars(activeWars int) ThreatLevel {
	switch {
	case activeWars <= 0:
		return ThreatMinimal
	case activeWars == 1:
		return ThreatLimited
	case activeWars == 2:
		return ThreatSubstantial
	case activeWars == 3:
		return ThreatSevere
	default:
		return ThreatCritical
	}
}
