package nlq

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"siem-assistant/internal/common/logger"
)

const isoLayout = "2006-01-02T15:04:05"

type dateRule struct {
	kind    string // "from", "until", "on"
	pattern *regexp.Regexp
}

// Date cues are tested in this order; the first matching cue decides the
// shape of the range.
var dateRules = []dateRule{
	{"from", regexp.MustCompile(`(?:from|since|after)\s+([0-9]{4}-[0-9]{2}-[0-9]{2})`)},
	{"until", regexp.MustCompile(`(?:until|before|to)\s+([0-9]{4}-[0-9]{2}-[0-9]{2})`)},
	{"on", regexp.MustCompile(`on\s+([0-9]{4}-[0-9]{2}-[0-9]{2})`)},
}

// TimeRangeResolver turns temporal phrases into {gte, lte} bounds. Every
// query gets a bound: when no cue is found the implicit last-24-hours
// window applies.
type TimeRangeResolver struct {
	ranges map[string]string
	keys   []string // sorted for deterministic named-key checks
	logger logger.Logger
}

func NewTimeRangeResolver(ranges map[string]string, log logger.Logger) *TimeRangeResolver {
	keys := make([]string, 0, len(ranges))
	for k := range ranges {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return &TimeRangeResolver{
		ranges: ranges,
		keys:   keys,
		logger: log,
	}
}

// Resolve expects lower-cased text.
func (r *TimeRangeResolver) Resolve(text string) map[string]interface{} {
	// Named ranges first: "last_hour" matches the phrase "last hour".
	for _, key := range r.keys {
		if strings.Contains(text, strings.ReplaceAll(key, "_", " ")) {
			return map[string]interface{}{
				"gte": r.ranges[key],
				"lte": "now",
			}
		}
	}

	for _, rule := range dateRules {
		match := rule.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		parsed, err := time.Parse("2006-01-02", match[1])
		if err != nil {
			r.logger.Warn("failed to parse date", map[string]interface{}{
				"date":  match[1],
				"error": err.Error(),
			})
			continue
		}

		switch rule.kind {
		case "from":
			return map[string]interface{}{
				"gte": parsed.Format(isoLayout),
				"lte": "now",
			}
		case "until":
			return map[string]interface{}{
				"gte": "now-30d",
				"lte": parsed.Format(isoLayout),
			}
		case "on":
			return map[string]interface{}{
				"gte": parsed.Format(isoLayout),
				"lte": parsed.AddDate(0, 0, 1).Format(isoLayout),
			}
		}
	}

	return map[string]interface{}{
		"gte": "now-24h",
		"lte": "now",
	}
}
