// Package scrub implements pattern-driven redaction over byte payloads
// before they enter the capture pipeline (spec §4.D).
package scrub

import "regexp"

// Pattern pairs a compiled regex with its replacement text.
type Pattern struct {
	Regex       string
	Replacement string
}

// defaultPatterns is the built-in list, order-significant: vendor-specific
// key patterns must precede the generic "sk-" fallback so the labeled
// replacement wins (spec §6).
var defaultPatterns = []Pattern{
	{`sk-ant-[A-Za-z0-9_-]{20,}`, "[REDACTED_ANTHROPIC_KEY]"},
	{`sk-proj-[A-Za-z0-9_-]{20,}`, "[REDACTED_OPENAI_KEY]"},
	{`sk_live_[A-Za-z0-9_-]{20,}`, "[REDACTED_STRIPE_KEY]"},
	{`sk_test_[A-Za-z0-9_-]{20,}`, "[REDACTED_STRIPE_KEY]"},
	{`pk_live_[A-Za-z0-9_-]{20,}`, "[REDACTED_STRIPE_KEY]"},
	{`pk_test_[A-Za-z0-9_-]{20,}`, "[REDACTED_STRIPE_KEY]"},
	{`sk-[A-Za-z0-9_-]{20,}`, "[REDACTED_API_KEY]"},
	{`AKIA[A-Z0-9]{16}`, "[REDACTED_AWS_KEY]"},
	{`ghp_[A-Za-z0-9]{36}`, "[REDACTED_GITHUB_TOKEN]"},
	{`gho_[A-Za-z0-9]{36}`, "[REDACTED_GITHUB_TOKEN]"},
	{`github_pat_[A-Za-z0-9_]{22,}`, "[REDACTED_GITHUB_TOKEN]"},
	{`Bearer\s+[A-Za-z0-9_\-.]{20,}`, "Bearer [REDACTED_TOKEN]"},
	{`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "[REDACTED_EMAIL]"},
	{`(?:api[_-]?key|token|secret|password|authorization)["']?\s*[:=]\s*["']?([A-Za-z0-9+/=]{32,})`, "[REDACTED_SECRET]"},
}

const emailReplacement = "[REDACTED_EMAIL]"

// CustomString is an exact-substring replacement, applied after every
// regex pass (spec §4.D).
type CustomString struct {
	Original    string
	Replacement string
}

// Config configures the scrubbing transform.
type Config struct {
	// Patterns overrides the built-in default list when non-empty.
	Patterns []Pattern
	// ExtraPatterns are appended after Patterns.
	ExtraPatterns []Pattern
	// RedactEmails, when false, removes the email pattern from the
	// default list. Has no effect when Patterns is explicitly set.
	RedactEmails bool
	// CustomStrings are applied in order via literal substring
	// replacement after all regex passes.
	CustomStrings []CustomString
}

// DefaultConfig returns a Config using the built-in pattern list with
// email redaction enabled.
func DefaultConfig() Config {
	return Config{RedactEmails: true}
}

func (c Config) allPatterns() []Pattern {
	base := c.Patterns
	if len(base) == 0 {
		base = defaultPatterns
		if !c.RedactEmails {
			filtered := make([]Pattern, 0, len(base))
			for _, p := range base {
				if p.Replacement == emailReplacement {
					continue
				}
				filtered = append(filtered, p)
			}
			base = filtered
		}
	}
	return append(append([]Pattern{}, base...), c.ExtraPatterns...)
}

// Compiled holds pre-compiled regexes for a Config so repeated Scrub
// calls don't recompile the default list every time.
type Compiled struct {
	regexes []*regexp.Regexp
	repls   []string
	config  Config
}

// Compile precompiles a Config's patterns for reuse across many Scrub
// calls (the Recorder keeps one of these for the lifetime of a session).
func Compile(cfg Config) (*Compiled, error) {
	patterns := cfg.allPatterns()
	c := &Compiled{
		regexes: make([]*regexp.Regexp, 0, len(patterns)),
		repls:   make([]string, 0, len(patterns)),
		config:  cfg,
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, err
		}
		c.regexes = append(c.regexes, re)
		c.repls = append(c.repls, p.Replacement)
	}
	return c, nil
}

// Scrub applies every compiled regex pattern in order, then every
// custom string replacement in order, over data decoded as UTF-8 with
// lossy substitution for invalid sequences (spec §4.D).
func (c *Compiled) Scrub(data []byte) []byte {
	text := []byte(toValidUTF8(data))
	for i, re := range c.regexes {
		text = re.ReplaceAll(text, []byte(c.repls[i]))
	}
	for _, cs := range c.config.CustomStrings {
		text = replaceAllLiteral(text, cs.Original, cs.Replacement)
	}
	return text
}

// Scrub is a convenience one-shot entry point that compiles cfg on
// every call; prefer Compile+(*compiled).Scrub for repeated use.
func Scrub(data []byte, cfg Config) ([]byte, error) {
	c, err := Compile(cfg)
	if err != nil {
		return nil, err
	}
	return c.Scrub(data), nil
}
