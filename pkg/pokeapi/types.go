package pokeapi

import "strings"

type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ListResponse is one page of /pokemon.
type ListResponse struct {
	Count    int             `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  []NamedResource `json:"results"`
}

type Pokemon struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Height         int    `json:"height"`
	Weight         int    `json:"weight"`
	BaseExperience int    `json:"base_experience"`
	Types          []struct {
		Slot int           `json:"slot"`
		Type NamedResource `json:"type"`
	} `json:"types"`
	Abilities []struct {
		Ability NamedResource `json:"ability"`
	} `json:"abilities"`
	Stats []struct {
		BaseStat int           `json:"base_stat"`
		Stat     NamedResource `json:"stat"`
	} `json:"stats"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
		BackDefault  string `json:"back_default"`
	} `json:"sprites"`
}

func (p Pokemon) TypeNames() []string {
	out := make([]string, 0, len(p.Types))
	for _, t := range p.Types {
		out = append(out, t.Type.Name)
	}
	return out
}

func (p Pokemon) AbilityNames() []string {
	out := make([]string, 0, len(p.Abilities))
	for _, a := range p.Abilities {
		out = append(out, a.Ability.Name)
	}
	return out
}

// BaseStat returns the named base stat ("hp", "attack", ...), 0 if absent.
func (p Pokemon) BaseStat(name string) int {
	for _, s := range p.Stats {
		if s.Stat.Name == name {
			return s.BaseStat
		}
	}
	return 0
}

type Species struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	FlavorTextEntries []struct {
		FlavorText string        `json:"flavor_text"`
		Language   NamedResource `json:"language"`
	} `json:"flavor_text_entries"`
}

// EnglishFlavor returns the first English flavor text with line and page
// breaks flattened to spaces, or "" when there is none.
func (s Species) EnglishFlavor() string {
	for _, e := range s.FlavorTextEntries {
		if e.Language.Name == "en" {
			return strings.NewReplacer("\n", " ", "\f", " ").Replace(e.FlavorText)
		}
	}
	return ""
}
