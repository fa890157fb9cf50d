package main

import (
	"github.com/joboya/ghostline/internal/config"
	"github.com/joboya/ghostline/internal/scrub"
)

// buildScrubConfig merges an optional JWCC override file (spec §4.D) on
// top of the built-in defaults. A blank ScrubConfigPath yields the
// defaults unchanged.
func buildScrubConfig(cfg *config.Config) (*scrub.Config, error) {
	out := scrub.DefaultConfig()

	rules, err := config.LoadScrubRuleFile(cfg.ScrubConfigPath)
	if err != nil {
		return nil, err
	}
	if rules == nil {
		return &out, nil
	}

	out.RedactEmails = rules.RedactEmails
	for _, p := range rules.Patterns {
		out.ExtraPatterns = append(out.ExtraPatterns, scrub.Pattern{
			Regex:       p.Regex,
			Replacement: p.Replacement,
		})
	}
	for _, cs := range rules.CustomStrings {
		out.CustomStrings = append(out.CustomStrings, scrub.CustomString{
			Original:    cs.Original,
			Replacement: cs.Replacement,
		})
	}
	return &out, nil
}
