package config

import (
	"fmt"

	"agentgift-economy/economy"

	"github.com/BurntSushi/toml"
)

type rulesFile struct {
	Features []economy.FeatureRule `toml:"feature"`
}

// LoadRules returns the built-in rule table, overlaid with the [[feature]]
// entries of path when path is non-empty.
func LoadRules(path string) (economy.RuleSet, error) {
	rules := economy.DefaultRules()
	if path == "" {
		return rules, nil
	}

	var f rulesFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("read feature rules %s: %w", path, err)
	}
	return mergeRules(rules, f.Features)
}

// ParseRules is LoadRules over an in-memory document.
func ParseRules(doc string) (economy.RuleSet, error) {
	var f rulesFile
	if _, err := toml.Decode(doc, &f); err != nil {
		return nil, fmt.Errorf("parse feature rules: %w", err)
	}
	return mergeRules(economy.DefaultRules(), f.Features)
}

func mergeRules(rules economy.RuleSet, overrides []economy.FeatureRule) (economy.RuleSet, error) {
	for _, r := range overrides {
		if tier, ok := economy.ParseTier(string(r.RequiredTier)); ok {
			r.RequiredTier = tier
		}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		rules[r.Key] = r
	}
	return rules, nil
}
