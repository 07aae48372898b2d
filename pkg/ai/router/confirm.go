package router

import (
	"regexp"
	"strings"
)

var (
	confirmRe = regexp.MustCompile(`(?i)\b(yes|yep|yeah|correct|right|sure|ok|okay|good|great|perfect|sounds good|looks good|confirmed)\b`)
	negateRe  = regexp.MustCompile(`(?i)\b(no|nope|not|wrong|incorrect|change|actually)\b`)
)

// bareAcks are acknowledgements that read like agreement but carry no
// decision. They must never advance the workflow on their own.
var bareAcks = map[string]bool{
	"thanks":    true,
	"thank you": true,
	"thx":       true,
	"ty":        true,
	"cool":      true,
	"nice":      true,
	"awesome":   true,
	"got it":    true,
	"k":         true,
	"kk":        true,
}

// IsNegation reports whether the message pushes back on what was just
// proposed. Negation wins over any confirmation words in the same message
// ("no, actually change the hotel" is not a confirmation).
func IsNegation(message string) bool {
	return negateRe.MatchString(message)
}

// IsBareAck reports whether the whole message is a contentless
// acknowledgement.
func IsBareAck(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	msg = strings.TrimRight(msg, "!. ")
	return bareAcks[msg]
}

// IsConfirmation reports whether the message confirms a proposal the
// assistant is waiting on. Confirmation words only count while something
// is actually awaiting confirmation; outside that window "sure" and "ok"
// are conversational filler. Negation anywhere in the message wins.
func IsConfirmation(message string, awaiting bool) bool {
	if !awaiting {
		return false
	}
	if IsNegation(message) {
		return false
	}
	if IsBareAck(message) {
		return false
	}
	return confirmRe.MatchString(message)
}
