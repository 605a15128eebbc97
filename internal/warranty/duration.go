// Package warranty holds the eligibility engine: warranty term parsing, evidence
// matching, outcome evaluation and catalog synchronisation.
package warranty

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/goatkit/warrantyflow/internal/models"
)

var titleDurationPattern = regexp.MustCompile(`(\d+)([dmy])|lifetime`)

// ParseTitle extracts the warranty term from a product title. The leftmost token
// wins; false means no usable token was found.
func ParseTitle(title string) (models.Duration, bool) {
	m := titleDurationPattern.FindStringSubmatch(strings.ToLower(title))
	if m == nil {
		return models.Duration{}, false
	}
	if m[0] == "lifetime" {
		return models.Lifetime, true
	}
	if len(m[1]) > 6 {
		return models.Duration{}, false
	}
	amount, err := strconv.Atoi(m[1])
	if err != nil {
		return models.Duration{}, false
	}
	d := models.Duration{Amount: amount, Unit: models.DurationUnit(m[2])}
	if !d.Valid() {
		return models.Duration{}, false
	}
	return d, true
}
