package data

import (
	"regexp"
	"strings"
)

// Regex is a regular expression literal made of a source pattern and a flag
// string, such as "i" or "im".
type Regex struct {
	Pattern string
	Flags   string
}

// RegexOf splits a compiled expression into its pattern and the flags of a
// leading inline flag group, so that regexp.MustCompile("(?i)^a") becomes
// {Pattern: "^a", Flags: "i"}. Groups with a body or negated flags are kept
// in the pattern.
func RegexOf(r *regexp.Regexp) Regex {
	src := r.String()
	if !strings.HasPrefix(src, "(?") {
		return Regex{Pattern: src}
	}
	end := strings.IndexByte(src, ')')
	if end < 0 {
		return Regex{Pattern: src}
	}
	flags := src[2:end]
	if flags == "" || strings.ContainsAny(flags, ":-") {
		return Regex{Pattern: src}
	}
	return Regex{Pattern: src[end+1:], Flags: flags}
}

// String returns the literal as /pattern/flags.
func (r Regex) String() string {
	return "/" + r.Pattern + "/" + r.Flags
}
