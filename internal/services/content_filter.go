package services

import (
	"regexp"
)

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"spam", "scam", "scammer", "phishing", "malware",
}

const (
	ReasonInappropriateLanguage = "inappropriate_language"
	ReasonURLNotAllowed         = "url_not_allowed"
	ReasonContactInfo           = "contact_info_not_allowed"
	ReasonSpam                  = "spam_detected"
	ReasonExcessiveCaps         = "excessive_caps"
)

// ContentFilter screens comment text before it is appended. Patterns are
// compiled once and the filter is safe for concurrent use.
type ContentFilter struct {
	bannedWordRegexps   []*regexp.Regexp
	urlPattern          *regexp.Regexp
	emailPattern        *regexp.Regexp
	phonePattern        *regexp.Regexp
	repeatedCharPattern *regexp.Regexp
	allCapsPattern      *regexp.Regexp
}

func NewContentFilter() *ContentFilter {
	f := &ContentFilter{
		bannedWordRegexps: make([]*regexp.Regexp, 0, len(BannedWords)),
	}
	for _, word := range BannedWords {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		if err == nil {
			f.bannedWordRegexps = append(f.bannedWordRegexps, re)
		}
	}

	f.urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	f.emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	f.phonePattern = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)
	// RE2 has no backreferences, so runs are matched per character.
	f.repeatedCharPattern = regexp.MustCompile(`(?i)(a{6,}|b{6,}|c{6,}|d{6,}|e{6,}|f{6,}|g{6,}|h{6,}|i{6,}|j{6,}|k{6,}|l{6,}|m{6,}|n{6,}|o{6,}|p{6,}|q{6,}|r{6,}|s{6,}|t{6,}|u{6,}|v{6,}|w{6,}|x{6,}|y{6,}|z{6,}|!{6,}|\?{6,})`)
	f.allCapsPattern = regexp.MustCompile(`[A-Z]{5,}`)
	return f
}

// Check reports whether text may be posted and, when it may not, a reason
// code suitable for RejectionMessage.
func (f *ContentFilter) Check(text string) (bool, string) {
	if text == "" {
		return true, ""
	}
	for _, re := range f.bannedWordRegexps {
		if re.MatchString(text) {
			return false, ReasonInappropriateLanguage
		}
	}
	if f.urlPattern.MatchString(text) {
		return false, ReasonURLNotAllowed
	}
	if f.emailPattern.MatchString(text) || f.phonePattern.MatchString(text) {
		return false, ReasonContactInfo
	}
	if f.repeatedCharPattern.MatchString(text) {
		return false, ReasonSpam
	}
	if len(f.allCapsPattern.FindAllString(text, -1)) > 2 {
		return false, ReasonExcessiveCaps
	}
	return true, ""
}

func (f *ContentFilter) RejectionMessage(reason string) string {
	messages := map[string]string{
		ReasonInappropriateLanguage: "Your comment contains inappropriate language.",
		ReasonURLNotAllowed:         "URLs and web links are not allowed in comments.",
		ReasonContactInfo:           "Contact information is not allowed in comments.",
		ReasonSpam:                  "Your comment appears to be spam.",
		ReasonExcessiveCaps:         "Please avoid using excessive capital letters.",
	}
	if msg, ok := messages[reason]; ok {
		return msg
	}
	return "Your comment does not meet our content guidelines."
}
