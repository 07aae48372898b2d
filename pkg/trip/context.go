package trip

import (
	"regexp"
	"strconv"
	"strings"
)

// maxRecentComponents bounds the recency list used for pronoun resolution.
const maxRecentComponents = 10

// PendingDecision is an explicit multiple-choice question waiting on the
// user. At most one is pending at a time; setting a new one replaces the
// previous one.
type PendingDecision struct {
	Prompt  string   `json:"prompt"`
	Type    string   `json:"type"` // component type the options belong to
	Options []string `json:"options"`
}

// ConversationContext tracks what the conversation is "about" right now:
// recently mentioned components and any decision awaiting user input.
type ConversationContext struct {
	Recent  []string         `json:"recent_components,omitempty"` // component ids, most recent last
	Pending *PendingDecision `json:"pending_decision,omitempty"`
}

// Touch records a component mention. Consecutive duplicates are collapsed
// and the list is capped at its maximum length, oldest first out.
func (cc *ConversationContext) Touch(componentID string) {
	if componentID == "" {
		return
	}
	if n := len(cc.Recent); n > 0 && cc.Recent[n-1] == componentID {
		return
	}
	cc.Recent = append(cc.Recent, componentID)
	if len(cc.Recent) > maxRecentComponents {
		cc.Recent = cc.Recent[len(cc.Recent)-maxRecentComponents:]
	}
}

// MostRecent returns the latest mentioned component id, or "".
func (cc *ConversationContext) MostRecent() string {
	if len(cc.Recent) == 0 {
		return ""
	}
	return cc.Recent[len(cc.Recent)-1]
}

// MostRecentOfType walks the recency list backwards for the latest mention
// of the given component type.
func (cc *ConversationContext) MostRecentOfType(cs *ComponentSet, ctype string) *Component {
	for i := len(cc.Recent) - 1; i >= 0; i-- {
		if c, err := cs.Get(cc.Recent[i]); err == nil && c.Type == ctype {
			return c
		}
	}
	return nil
}

// SetPending replaces any pending decision with a new one.
func (cc *ConversationContext) SetPending(prompt, ctype string, options []string) {
	cc.Pending = &PendingDecision{Prompt: prompt, Type: ctype, Options: options}
}

// ClearPending drops the pending decision once it is resolved.
func (cc *ConversationContext) ClearPending() {
	cc.Pending = nil
}

var (
	bareNumberRe = regexp.MustCompile(`^\s*#?(\d+)\s*\.?\s*$`)
	inlineNumRe  = regexp.MustCompile(`(?i)\b(?:option|number|choice)\s*#?(\d+)\b`)
	pronounRe    = regexp.MustCompile(`(?i)\b(it|that|this one|that one)\b`)
	theTypeRe    = regexp.MustCompile(`(?i)\bthe\s+(hotel|accommodation|flight|transport|restaurant|activity)\b`)
)

var ordinalWords = []struct {
	word string
	idx  int
}{
	{"first", 1},
	{"second", 2},
	{"third", 3},
	{"fourth", 4},
	{"fifth", 5},
}

// ResolveOption maps a user reply to a 1-based index into the pending
// decision's options. Returns 0 when the reply does not pick an option.
// Accepted forms: a bare or inline number, ordinal words, "last", or a
// fuzzy match against an option's text.
func (cc *ConversationContext) ResolveOption(message string) int {
	if cc.Pending == nil || len(cc.Pending.Options) == 0 {
		return 0
	}
	msg := strings.ToLower(strings.TrimSpace(message))
	n := len(cc.Pending.Options)

	if m := bareNumberRe.FindStringSubmatch(msg); m != nil {
		if i, _ := strconv.Atoi(m[1]); i >= 1 && i <= n {
			return i
		}
		return 0
	}
	if m := inlineNumRe.FindStringSubmatch(msg); m != nil {
		if i, _ := strconv.Atoi(m[1]); i >= 1 && i <= n {
			return i
		}
	}
	for _, o := range ordinalWords {
		if containsWord(msg, o.word) && o.idx <= n {
			return o.idx
		}
	}
	if containsWord(msg, "last") {
		return n
	}
	for i, opt := range cc.Pending.Options {
		lo := strings.ToLower(opt)
		score := 0
		for _, w := range strings.Fields(lo) {
			if len(w) >= 3 && containsWord(msg, w) {
				score++
			}
		}
		if score >= 1 {
			return i + 1
		}
	}
	return 0
}

// ResolveReference resolves what a message refers to, in priority order:
// an answer to the pending decision, a pronoun (most recent component),
// a "the <type>" phrase (most recent of type, falling back to sole
// component of type), then a fuzzy component lookup. Returns nil when
// nothing matches; callers treat that as "no referent".
func (cc *ConversationContext) ResolveReference(cs *ComponentSet, message string) *Component {
	if cc.Pending != nil {
		if idx := cc.ResolveOption(message); idx > 0 {
			if c := componentForOption(cs, cc.Pending, idx); c != nil {
				return c
			}
		}
	}
	if pronounRe.MatchString(message) {
		if id := cc.MostRecent(); id != "" {
			if c, err := cs.Get(id); err == nil {
				return c
			}
		}
	}
	if m := theTypeRe.FindStringSubmatch(message); m != nil {
		ctype := canonicalType(strings.ToLower(m[1]))
		if c := cc.MostRecentOfType(cs, ctype); c != nil {
			return c
		}
		if c := soleOfType(cs, ctype); c != nil {
			return c
		}
	}
	if c, err := cs.Find(message); err == nil {
		return c
	}
	return nil
}

func canonicalType(word string) string {
	switch word {
	case "hotel", "accommodation":
		return ComponentAccommodation
	case "flight", "transport":
		return ComponentTransport
	case "restaurant":
		return ComponentRestaurant
	default:
		return ComponentActivity
	}
}

func soleOfType(cs *ComponentSet, ctype string) *Component {
	var found *Component
	for _, c := range cs.All() {
		if c.Type != ctype {
			continue
		}
		if found != nil {
			return nil
		}
		found = c
	}
	return found
}

func componentForOption(cs *ComponentSet, pd *PendingDecision, idx int) *Component {
	opt := pd.Options[idx-1]
	for _, c := range cs.All() {
		if pd.Type != "" && c.Type != pd.Type {
			continue
		}
		if strings.EqualFold(c.Name(), opt) {
			return c
		}
	}
	// Options may be ids rather than names.
	if c, err := cs.Get(opt); err == nil {
		return c
	}
	return nil
}
