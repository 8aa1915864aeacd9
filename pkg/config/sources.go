// ABOUTME: Source catalogue loading from YAML with built-in defaults
// ABOUTME: Header values may reference process configuration as ${VAR}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"listings-aggregator-api/core/domain"
)

// SourceSpec is one catalogue entry before credentials are resolved
type SourceSpec struct {
	Name    string            `yaml:"name"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Params  map[string]string `yaml:"params"`
	ListKey string            `yaml:"list_key"`
	IDField string            `yaml:"id_field"`
}

type sourcesFile struct {
	Sources []SourceSpec `yaml:"sources"`
}

// LoadSources reads the catalogue from path, or returns the defaults when path is empty
func LoadSources(path string) ([]SourceSpec, error) {
	if path == "" {
		return DefaultSources(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	return ParseSources(data)
}

// ParseSources decodes a YAML catalogue
func ParseSources(data []byte) ([]SourceSpec, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("sources file defines no sources")
	}
	return f.Sources, nil
}

// DefaultSources returns the RapidAPI real-estate providers
func DefaultSources() []SourceSpec {
	return []SourceSpec{
		{
			Name: "realty_in_us",
			URL:  "https://realty-in-us.p.rapidapi.com/properties/v2/list-for-sale",
			Headers: map[string]string{
				"X-RapidAPI-Key":  "${RAPIDAPI_KEY}",
				"X-RapidAPI-Host": "realty-in-us.p.rapidapi.com",
			},
			Params: map[string]string{
				"city":       "Los Angeles",
				"state_code": "CA",
				"limit":      "50",
				"offset":     "0",
				"sort":       "relevant",
			},
		},
		{
			Name: "zillow_com1",
			URL:  "https://zillow-com1.p.rapidapi.com/propertyExtendedSearch",
			Headers: map[string]string{
				"X-RapidAPI-Key":  "${RAPIDAPI_KEY}",
				"X-RapidAPI-Host": "zillow-com1.p.rapidapi.com",
			},
			Params: map[string]string{
				"location":  "Los Angeles, CA",
				"home_type": "Houses",
				"limit":     "50",
			},
			ListKey: "props",
			IDField: "zpid",
		},
		{
			Name: "redfin_com_data",
			URL:  "https://redfin-com-data.p.rapidapi.com/property/search",
			Headers: map[string]string{
				"X-RapidAPI-Key":  "${RAPIDAPI_KEY}",
				"X-RapidAPI-Host": "redfin-com-data.p.rapidapi.com",
			},
			Params: map[string]string{
				"city":  "Los Angeles",
				"state": "CA",
				"limit": "50",
			},
		},
	}
}

// Descriptor converts the entry into a source descriptor with placeholders intact
func (s SourceSpec) Descriptor() domain.Source {
	return domain.Source{
		Name:    s.Name,
		URL:     s.URL,
		Headers: copyMap(s.Headers),
		Params:  copyMap(s.Params),
		ListKey: s.ListKey,
		IDField: s.IDField,
	}
}

// SourceDescriptors converts every configured entry
func (c *Config) SourceDescriptors() []domain.Source {
	out := make([]domain.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		out = append(out, s.Descriptor())
	}
	return out
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
