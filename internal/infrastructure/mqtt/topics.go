package mqtt

import (
	"fmt"
	"strings"
)

// Topic filter wildcards.
const (
	wildcardMulti  = "#"
	wildcardSingle = "+"
	levelSeparator = "/"
)

// Filter is a parsed MQTT topic filter such as "reqsynctime/#".
// Matching follows MQTT 3.1.1 §4.7: "+" matches exactly one level, a
// trailing "#" matches the parent level and any number of children, and
// comparison is case-sensitive.
type Filter struct {
	raw    string
	levels []string
}

// ParseFilter validates filter and returns its parsed form.
func ParseFilter(filter string) (Filter, error) {
	if filter == "" {
		return Filter{}, fmt.Errorf("%w: empty", ErrInvalidFilter)
	}

	levels := strings.Split(filter, levelSeparator)
	for i, level := range levels {
		switch {
		case level == wildcardMulti:
			if i != len(levels)-1 {
				return Filter{}, fmt.Errorf("%w: %q has # before the last level", ErrInvalidFilter, filter)
			}
		case level == wildcardSingle:
		case strings.ContainsAny(level, wildcardMulti+wildcardSingle):
			return Filter{}, fmt.Errorf("%w: %q mixes a wildcard into level %q", ErrInvalidFilter, filter, level)
		}
	}

	return Filter{raw: filter, levels: levels}, nil
}

// MustParseFilter is ParseFilter for package-level constants; it panics on error.
func MustParseFilter(filter string) Filter {
	f, err := ParseFilter(filter)
	if err != nil {
		panic(err)
	}
	return f
}

// String returns the filter as written.
func (f Filter) String() string {
	return f.raw
}

// Match reports whether topic matches the filter.
func (f Filter) Match(topic string) bool {
	if topic == "" || len(f.levels) == 0 {
		return false
	}

	// Topics starting with $ are reserved for broker internals.
	if strings.HasPrefix(topic, "$") && (f.levels[0] == wildcardMulti || f.levels[0] == wildcardSingle) {
		return false
	}

	levels := strings.Split(topic, levelSeparator)
	for i, want := range f.levels {
		if want == wildcardMulti {
			return true
		}
		if i >= len(levels) {
			return false
		}
		if want != wildcardSingle && want != levels[i] {
			return false
		}
	}

	return len(levels) == len(f.levels)
}

// Suffix returns the part of topic below the filter's fixed prefix, without
// the leading separator: "reqsynctime/#" on "reqsynctime/ABC" gives "ABC".
// It returns "" when the topic has nothing below the prefix.
func (f Filter) Suffix(topic string) string {
	prefix := make([]string, 0, len(f.levels))
	for _, level := range f.levels {
		if level == wildcardMulti || level == wildcardSingle {
			break
		}
		prefix = append(prefix, level)
	}

	p := strings.Join(prefix, levelSeparator)
	rest := strings.TrimPrefix(topic, p)
	return strings.TrimPrefix(rest, levelSeparator)
}

// JoinTopic joins topic levels with "/".
func JoinTopic(levels ...string) string {
	return strings.Join(levels, levelSeparator)
}
