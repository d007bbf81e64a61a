package util

import (
	"regexp"
	"strings"
)

var (
	mentionPattern = regexp.MustCompile(`(?:^|[^\w@])@([a-zA-Z0-9_]{3,20})\b`)
	hashtagPattern = regexp.MustCompile(`(?:^|[^\w#])#([a-zA-Z0-9_]{1,50})`)
)

// ExtractMentions returns the unique @usernames in content, lower-cased and
// without the @.
func ExtractMentions(content string) []string {
	return uniqueLower(mentionPattern.FindAllStringSubmatch(content, -1))
}

// ExtractHashtags returns the unique #tags in content, lower-cased and without
// the #.
func ExtractHashtags(content string) []string {
	return uniqueLower(hashtagPattern.FindAllStringSubmatch(content, -1))
}

func uniqueLower(matches [][]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range matches {
		name := strings.ToLower(m[1])
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
