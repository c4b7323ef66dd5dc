// Package chat maps a free-text grow question to a canned recommendation.
// First matching rule wins; matching is case-insensitive substring, except
// one- and two-letter keywords which only match as whole words.
package chat

import (
	"strings"
	"unicode"
)

type rule struct {
	keywords []string
	reply    string
}

var rules = []rule{
	{[]string{"ppm", "ec", "nutrient"},
		"Hold vegetative feed around 800-1000 ppm and step up 100 ppm per week once new growth keeps pace. Always adjust after pH, not before."},
	{[]string{"ph"},
		"Keep the reservoir between 5.8 and 6.2 for hydro, 6.2 and 6.8 for soil. Drift above 6.5 usually means the buffer is exhausted; rebuild the res rather than chasing it down."},
	{[]string{"yellow", "deficien", "leaf", "leaves"},
		"Lower-leaf yellowing that climbs is usually nitrogen; interveinal yellowing on new growth points at iron or a pH lockout. Check runoff pH before adding anything."},
	{[]string{"light", "lumen", "dli"},
		"Veg wants 18 hours on, flower 12. If stretch is excessive, drop intensity 10-15% rather than raising the fixture out of range."},
	{[]string{"humid", "vpd", "moisture"},
		"Target 0.8-1.0 kPa VPD in veg and 1.2-1.4 in flower. Rising humidity at lights-off is the first place mold starts; add airflow before dehumidification."},
	{[]string{"pest", "mite", "gnat", "thrip"},
		"Isolate the affected plants, then run sticky traps for a week to size the population before spraying. Most outbreaks trace back to intake filters or new clones."},
}

const fallback = "Log the room, plant and a reading or two and I can be more specific. Feed strength, pH and light schedule cover most problems."

// Respond returns the canned recommendation for message.
func Respond(message string) string {
	m := strings.ToLower(message)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if matches(m, kw) {
				return r.reply
			}
		}
	}
	return fallback
}

// matches is a plain substring check for keywords long enough to be
// unambiguous. Short tokens like "ec" and "ph" only match whole words;
// otherwise "spec" would trigger the feed rule.
func matches(m, kw string) bool {
	if len(kw) > 2 {
		return strings.Contains(m, kw)
	}
	for _, w := range strings.FieldsFunc(m, notAlphanumeric) {
		if w == kw {
			return true
		}
	}
	return false
}

func notAlphanumeric(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
