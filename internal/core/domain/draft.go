package domain

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxInitialGaps bounds the gap markers an initial draft may carry.
const MaxInitialGaps = 5

const gapMarkerOpen = "[MISSING:"

var gapMarkerPattern = regexp.MustCompile(`\[MISSING:\s*([^\[\]]*?)\s*\]`)

// GapMarker is an inline "[MISSING: topic]" placeholder inside a draft.
type GapMarker struct {
	Topic string
}

// FormatGap renders a gap marker for topic.
func FormatGap(topic string) string {
	return gapMarkerOpen + " " + strings.TrimSpace(topic) + "]"
}

// Draft is an intermediate answer produced during iterative refinement.
// Values are immutable; every transformation returns a new Draft.
type Draft struct {
	text string
}

func NewDraft(text string) Draft {
	return Draft{text: strings.TrimSpace(text)}
}

func (d Draft) Text() string {
	return d.text
}

func (d Draft) String() string {
	return d.text
}

func (d Draft) Gaps() []GapMarker {
	matches := gapMarkerPattern.FindAllStringSubmatch(d.text, -1)
	gaps := make([]GapMarker, 0, len(matches))
	for _, m := range matches {
		gaps = append(gaps, GapMarker{Topic: m[1]})
	}
	return gaps
}

func (d Draft) GapCount() int {
	return len(gapMarkerPattern.FindAllStringIndex(d.text, -1))
}

// Topics returns the gap topics in order of appearance.
func (d Draft) Topics() []string {
	gaps := d.Gaps()
	topics := make([]string, 0, len(gaps))
	for _, g := range gaps {
		topics = append(topics, g.Topic)
	}
	return topics
}

// CapGaps keeps the first limit markers and demotes the rest to plain text.
func (d Draft) CapGaps(limit int) Draft {
	if limit < 0 {
		limit = 0
	}
	seen := 0
	text := gapMarkerPattern.ReplaceAllStringFunc(d.text, func(marker string) string {
		seen++
		if seen <= limit {
			return marker
		}
		return markerTopic(marker)
	})
	return Draft{text: text}
}

// DropGapsNotIn demotes markers that prev did not already carry, so the
// result never holds more markers of a topic than prev did.
func (d Draft) DropGapsNotIn(prev Draft) Draft {
	known := make(map[string]int)
	for _, topic := range prev.Topics() {
		known[normalizeTopic(topic)]++
	}
	text := gapMarkerPattern.ReplaceAllStringFunc(d.text, func(marker string) string {
		topic := markerTopic(marker)
		key := normalizeTopic(topic)
		if known[key] > 0 {
			known[key]--
			return marker
		}
		return topic
	})
	return Draft{text: text}
}

// DemoteFirstGap replaces the first marker with its bare topic text.
func (d Draft) DemoteFirstGap() Draft {
	loc := gapMarkerPattern.FindStringSubmatchIndex(d.text)
	if loc == nil {
		return d
	}
	return Draft{text: d.text[:loc[0]] + d.text[loc[2]:loc[3]] + d.text[loc[1]:]}
}

// Truncate bounds the draft to maxRunes characters without splitting a gap
// marker. A non-positive limit disables truncation.
func (d Draft) Truncate(maxRunes int) Draft {
	if maxRunes <= 0 {
		return d
	}
	cut, count := -1, 0
	for i := range d.text {
		if count == maxRunes {
			cut = i
			break
		}
		count++
	}
	if cut < 0 {
		return d
	}
	for _, span := range gapMarkerPattern.FindAllStringIndex(d.text, -1) {
		if span[0] < cut && cut < span[1] {
			cut = span[0]
			break
		}
	}
	return Draft{text: strings.TrimRightFunc(d.text[:cut], unicode.IsSpace)}
}

func markerTopic(marker string) string {
	sub := gapMarkerPattern.FindStringSubmatch(marker)
	if len(sub) < 2 {
		return marker
	}
	return sub[1]
}

func normalizeTopic(topic string) string {
	return strings.ToLower(strings.Join(strings.Fields(topic), " "))
}
