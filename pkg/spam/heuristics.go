// Package spam implements the heuristics that decide whether a contact
// submission came from a human. None of them is a security boundary.
package spam

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultKeywords is the denylist used when nothing else is configured.
var DefaultKeywords = []string{"viagra", "casino", "lottery", "winner", "congratulations"}

// DefaultMinFillTime is the minimum time between rendering and submitting a form.
const DefaultMinFillTime = 3 * time.Second

// Reason identifies the heuristic that rejected a submission.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonHoneypot Reason = "honeypot"
	ReasonTooFast  Reason = "too_fast"
	ReasonKeyword  Reason = "keyword"
)

// Candidate is what the heuristics look at.
type Candidate struct {
	Name     string
	Message  string
	Honeypot string
	// RenderedAt is when the form was shown; zero disables the timing rule.
	RenderedAt time.Time
}

// Rule is one heuristic. The set of implementations is closed.
type Rule interface {
	isRule()
}

// Honeypot rejects any submission whose hidden field was filled in.
type Honeypot struct{}

// MinFillTime rejects submissions completed faster than Min.
type MinFillTime struct {
	Min time.Duration
}

// KeywordDenylist rejects submissions whose name or message contains one of
// the keywords, compared case-insensitively.
type KeywordDenylist struct {
	Keywords []string
}

func (Honeypot) isRule()        {}
func (MinFillTime) isRule()     {}
func (KeywordDenylist) isRule() {}

// Verdict is the outcome of an evaluation.
type Verdict struct {
	Accepted bool
	Reason   Reason
	// Detail names the matched keyword or the measured fill time.
	Detail string
}

var accepted = Verdict{Accepted: true}

// Evaluate runs the rules in order and stops at the first rejection.
func Evaluate(c Candidate, now time.Time, rules []Rule) Verdict {
	for _, rule := range rules {
		if v := evaluate(c, now, rule); !v.Accepted {
			return v
		}
	}
	return accepted
}

func evaluate(c Candidate, now time.Time, rule Rule) Verdict {
	switch r := rule.(type) {
	case Honeypot:
		if c.Honeypot != "" {
			return Verdict{Reason: ReasonHoneypot}
		}
	case MinFillTime:
		if c.RenderedAt.IsZero() {
			return accepted
		}
		if elapsed := now.Sub(c.RenderedAt); elapsed < r.Min {
			return Verdict{Reason: ReasonTooFast, Detail: fmt.Sprintf("%dms", elapsed.Milliseconds())}
		}
	case KeywordDenylist:
		content := strings.ToLower(c.Name + " " + c.Message)
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(content, kw) {
				return Verdict{Reason: ReasonKeyword, Detail: kw}
			}
		}
	default:
		panic(fmt.Sprintf("spam: unhandled rule %T", rule))
	}
	return accepted
}

// Rules builds the server rule set: honeypot, timing, keywords.
func Rules(minFill time.Duration, keywords []string) []Rule {
	return []Rule{
		Honeypot{},
		MinFillTime{Min: minFill},
		KeywordDenylist{Keywords: normalizeKeywords(keywords)},
	}
}

// ClientRules is the subset a form can check before submitting.
func ClientRules(minFill time.Duration) []Rule {
	return []Rule{Honeypot{}, MinFillTime{Min: minFill}}
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// Filter holds the active rule set. The keyword list can be replaced at run
// time; an evaluation always sees one complete rule set.
type Filter struct {
	minFill time.Duration
	rules   atomic.Pointer[[]Rule]
	now     func() time.Time
}

// NewFilter creates a filter. An empty keyword list selects DefaultKeywords.
func NewFilter(minFill time.Duration, keywords []string) *Filter {
	f := &Filter{minFill: minFill, now: time.Now}
	f.SetKeywords(keywords)
	return f
}

// WithClock replaces the time source, for tests.
func (f *Filter) WithClock(now func() time.Time) *Filter {
	f.now = now
	return f
}

// SetKeywords swaps the denylist.
func (f *Filter) SetKeywords(keywords []string) {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	rules := Rules(f.minFill, keywords)
	f.rules.Store(&rules)
}

// Keywords returns the active denylist.
func (f *Filter) Keywords() []string {
	for _, rule := range *f.rules.Load() {
		if kd, ok := rule.(KeywordDenylist); ok {
			return append([]string(nil), kd.Keywords...)
		}
	}
	return nil
}

// Check evaluates c against the active rules.
func (f *Filter) Check(c Candidate) Verdict {
	return Evaluate(c, f.now(), *f.rules.Load())
}
