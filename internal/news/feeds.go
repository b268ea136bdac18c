package news

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScopeFeeds is the YAML config structure mapping news scopes to upstream
// RSS endpoints. local_search must contain one %s for the escaped query.
type ScopeFeeds struct {
	World       string `yaml:"world"`
	Country     string `yaml:"country"`
	LocalSearch string `yaml:"local_search"`
	CountryTerm string `yaml:"country_term"`
}

// DefaultFeeds are the Google News endpoints the assistant ships with.
func DefaultFeeds() *ScopeFeeds {
	return &ScopeFeeds{
		World:       "https://news.google.com/rss?hl=en-US&gl=US&ceid=US:en",
		Country:     "https://news.google.com/rss?hl=en-IN&gl=IN&ceid=IN:en",
		LocalSearch: "https://news.google.com/rss/search?q=%s&hl=en-IN&gl=IN&ceid=IN:en",
		CountryTerm: "india",
	}
}

// LoadFeeds reads the scope->feed mapping from a YAML file. Missing fields
// keep their defaults so a partial config stays usable.
func LoadFeeds(path string) (*ScopeFeeds, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := DefaultFeeds()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.validate()
}

func (f *ScopeFeeds) validate() error {
	if f.World == "" || f.Country == "" || f.LocalSearch == "" {
		return fmt.Errorf("feeds config must set world, country and local_search")
	}
	if f.CountryTerm == "" {
		return fmt.Errorf("feeds config must set country_term")
	}
	return nil
}
