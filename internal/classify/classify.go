// Package classify assigns feed articles to one of the desk's canonical tags
// by keyword scoring.
package classify

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Tag is a canonical desk group.
type Tag string

const (
	Diplomacy Tag = "Diplomacy"
	Conflicts Tag = "Conflicts"
	Economy   Tag = "Economy"
	Climate   Tag = "Climate"
)

// AllTags returns the canonical tags in display order.
func AllTags() []Tag {
	return []Tag{Diplomacy, Conflicts, Economy, Climate}
}

var tagKeywords = map[Tag][]string{
	Diplomacy: {
		"diplomacy", "diplomatic", "diplomat", "summit", "treaty", "ambassador",
		"embassy", "minister", "bilateral", "multilateral", "negotiation", "talks",
		"envoy", "alliance", "nato", "asean", "united nations", "security council",
		"foreign policy", "sanctions", "accord",
	},
	Conflicts: {
		"war", "conflict", "ceasefire", "military", "troops", "airstrike",
		"missile", "insurgent", "militia", "rebel", "offensive", "invasion",
		"attack", "violence", "casualties", "peacekeeping", "coup", "armed",
		"border clash", "humanitarian corridor",
	},
	Economy: {
		"economy", "economic", "trade", "tariff", "inflation", "gdp", "imf",
		"world bank", "debt", "currency", "market", "growth", "recession",
		"investment", "export", "import", "fiscal", "monetary", "interest rate",
		"supply chain",
	},
	Climate: {
		"climate", "emissions", "carbon", "warming", "cop", "renewable",
		"solar", "wind power", "drought", "flood", "heatwave", "wildfire",
		"biodiversity", "deforestation", "net zero", "paris agreement",
		"fossil fuel", "adaptation", "sea level",
	},
}

// Aliases maps short CLI spellings to canonical tags.
var Aliases = map[string]Tag{
	"dip":      Diplomacy,
	"diplo":    Diplomacy,
	"war":      Conflicts,
	"conflict": Conflicts,
	"econ":     Economy,
	"eco":      Economy,
	"env":      Climate,
}

// ResolveAlias maps a CLI alias or a case-insensitive tag name to a Tag.
func ResolveAlias(alias string) (Tag, error) {
	alias = strings.ToLower(strings.TrimSpace(alias))
	if tag, ok := Aliases[alias]; ok {
		return tag, nil
	}
	for _, tag := range AllTags() {
		if strings.EqualFold(string(tag), alias) {
			return tag, nil
		}
	}
	valid := make([]string, 0, len(Aliases))
	for k := range Aliases {
		valid = append(valid, k)
	}
	sort.Strings(valid)
	return "", fmt.Errorf("unknown tag %q (valid: %s)", alias, strings.Join(valid, ", "))
}

// Classify scores title and description against each tag's keywords.
// Title hits count double. Ties go to the earlier tag in AllTags. An
// article that matches nothing gets "" and stays off the desk.
func Classify(title, description string) Tag {
	titleTokens := tokenize(title)
	descTokens := tokenize(description)
	titleLower := strings.ToLower(title)
	descLower := strings.ToLower(description)

	var best Tag
	bestScore := 0
	for _, tag := range AllTags() {
		score := 0
		for _, kw := range tagKeywords[tag] {
			if strings.Contains(kw, " ") {
				if strings.Contains(titleLower, kw) {
					score += 2
				}
				if strings.Contains(descLower, kw) {
					score++
				}
				continue
			}
			score += 2 * countToken(titleTokens, kw)
			score += countToken(descTokens, kw)
		}
		if score > bestScore {
			bestScore = score
			best = tag
		}
	}
	return best
}

// countToken matches whole words only; "cop" must not hit "cooperation".
func countToken(tokens []string, kw string) int {
	n := 0
	for _, t := range tokens {
		if t == kw {
			n++
		}
	}
	return n
}

func tokenize(s string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}
