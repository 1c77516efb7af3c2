// Package safety flags crisis language in user-submitted free text.
//
// The pattern set errs toward false positives. Narrowing it needs product
// sign-off.
package safety

import (
	"regexp"
)

// Patterns is the ordered crisis-indicator set.
var Patterns = []string{
	`(?i)suicid`,
	`(?i)kill\s*myself`,
	`(?i)end\s*it\s*all`,
	`(?i)hurt\s*myself`,
	`(?i)want\s*to\s*die`,
	`(?i)he\s*hits\s*me`,
	`(?i)she\s*hits\s*me`,
	`(?i)beat\s*me`,
	`(?i)(physic|sexual|emotional)\s*abuse`,
	`(?i)violen(ce|t)`,
	`(?i)scared\s*for\s*my\s*life`,
	`(?i)threaten`,
	`(?i)weapon`,
	`(?i)gun`,
	`(?i)knife`,
	`(?i)rape`,
	`(?i)assault`,
	`(?i)danger`,
	`(?i)emergency`,
	`(?i)call\s*911`,
}

// Detector matches text against a fixed, compiled pattern list. It holds no
// mutable state and is safe for concurrent use.
type Detector struct {
	patterns []*regexp.Regexp
}

// NewDetector compiles patterns in order.
func NewDetector(patterns []string) (*Detector, error) {
	d := &Detector{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		d.patterns = append(d.patterns, re)
	}
	return d, nil
}

var defaultDetector = &Detector{patterns: compileAll(Patterns)}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Default returns the detector built from Patterns.
func Default() *Detector { return defaultDetector }

// Match returns the first pattern that matches text.
func (d *Detector) Match(text string) (string, bool) {
	for _, re := range d.patterns {
		if re.MatchString(text) {
			return re.String(), true
		}
	}
	return "", false
}

// Detect reports whether any pattern matches text.
func (d *Detector) Detect(text string) bool {
	_, ok := d.Match(text)
	return ok
}

// Detect runs the default detector.
func Detect(text string) bool { return defaultDetector.Detect(text) }

// DetectAny reports whether any of the fields trips the detector.
func (d *Detector) DetectAny(fields ...string) bool {
	for _, f := range fields {
		if d.Detect(f) {
			return true
		}
	}
	return false
}
