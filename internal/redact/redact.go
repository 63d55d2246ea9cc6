// Package redact masks personal identifiers in free text before it reaches
// the logs. Citizen messages, chat questions and login identifiers pass
// through here; stored data is never rewritten.
package redact

import (
	"net"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	emailLabel = "[EMAIL]"
	cardLabel  = "[CARD]"
	ipLabel    = "[IP]"
	phoneLabel = "[PHONE]"
)

type detector struct {
	label  string
	re     *regexp.Regexp
	accept func(match string) bool
}

type span struct {
	start, end int
	label      string
}

// Detectors run in order; a later match overlapping an earlier one is dropped.
var detectors = []detector{
	{emailLabel, regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`), nil},
	{cardLabel, regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`), isCardNumber},
	{ipLabel, regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), isIPv4},
	{phoneLabel, regexp.MustCompile(`\+?\(?\d[\d\s().-]{5,}\d`), isPhoneNumber},
}

// Text returns s with every detected identifier replaced by a label
func Text(s string) string {
	var spans []span
	for _, d := range detectors {
		for _, m := range d.re.FindAllStringIndex(s, -1) {
			if d.accept != nil && !d.accept(s[m[0]:m[1]]) {
				continue
			}
			if overlaps(spans, m[0], m[1]) {
				continue
			}
			spans = append(spans, span{start: m[0], end: m[1], label: d.label})
		}
	}
	if len(spans) == 0 {
		return s
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(s[last:sp.start])
		b.WriteString(sp.label)
		last = sp.end
	}
	b.WriteString(s[last:])
	return b.String()
}

// Preview redacts s and truncates the result to max runes
func Preview(s string, max int) string {
	out := Text(strings.TrimSpace(s))
	if max <= 0 || utf8.RuneCountInString(out) <= max {
		return out
	}
	runes := []rune(out)
	return string(runes[:max]) + "..."
}

func overlaps(spans []span, start, end int) bool {
	for _, sp := range spans {
		if start < sp.end && sp.start < end {
			return true
		}
	}
	return false
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isCardNumber(match string) bool {
	digits := digitsOf(match)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	return luhnValid(digits)
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func isIPv4(match string) bool {
	ip := net.ParseIP(match)
	return ip != nil && ip.To4() != nil
}

// isPhoneNumber accepts 10 to 15 digits, or 7 and up with an international prefix.
// Dates and short numbers fall below the threshold.
func isPhoneNumber(match string) bool {
	n := len(digitsOf(match))
	if strings.HasPrefix(match, "+") {
		return n >= 7 && n <= 15
	}
	return n >= 10 && n <= 15
}
