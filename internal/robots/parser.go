package robots

import (
	"regexp"
	"strings"
)

var (
	allowLinePattern    = regexp.MustCompile(`(?i)^\s*allow:\s*(.+)$`)
	disallowLinePattern = regexp.MustCompile(`(?i)^\s*disallow:\s*(.+)$`)
)

// ParseRobotsTxt collects every Allow and Disallow path of content.
// Comments are stripped; all other directives are ignored.
func ParseRobotsTxt(content string) Rules {
	rules := Rules{}
	for _, line := range strings.Split(content, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimRight(line, "\r \t")

		if m := allowLinePattern.FindStringSubmatch(line); m != nil {
			if p := strings.TrimSpace(m[1]); p != "" {
				rules.Allows = append(rules.Allows, p)
			}
			continue
		}
		if m := disallowLinePattern.FindStringSubmatch(line); m != nil {
			if p := strings.TrimSpace(m[1]); p != "" {
				rules.Disallows = append(rules.Disallows, p)
			}
		}
	}
	return rules
}

// SeedPaths returns every distinct path listed in rules, truncated at the
// first wildcard or end anchor, in file order with allows first.
func SeedPaths(rules Rules) []string {
	seen := map[string]struct{}{}
	paths := []string{}
	for _, raw := range append(append([]string{}, rules.Allows...), rules.Disallows...) {
		p := raw
		if i := strings.IndexAny(p, "*$"); i >= 0 {
			p = p[:i]
		}
		p = rootPath(p)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	return paths
}

func rootPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}
