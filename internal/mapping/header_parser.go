// Package mapping turns raw spreadsheet records into canonical rows.
package mapping

import (
	"regexp"
	"strings"

	"github.com/openpim/importer/internal/domain"
)

var (
	attributeCodePattern = regexp.MustCompile(`^[a-z0-9_]+$`)
	localePattern        = regexp.MustCompile(`^[a-z]{2}_[A-Z]{2}$`)
	channelPattern       = regexp.MustCompile(`^[a-z0-9]+$`)
)

// ParseAttributeHeader parses a free-form column header of the form
// code[-locale][-channel]. A single suffix is tried as a locale first and
// falls back to a channel, so "color-web" scopes by channel while
// "color-en_US" scopes by locale. Returns false when the header does not
// match the grammar.
func ParseAttributeHeader(header string) (domain.AttributeKey, bool) {
	parts := strings.Split(strings.TrimSpace(header), "-")
	if len(parts) == 0 || len(parts) > 3 {
		return domain.AttributeKey{}, false
	}
	if !attributeCodePattern.MatchString(parts[0]) {
		return domain.AttributeKey{}, false
	}

	key := domain.AttributeKey{Code: parts[0]}
	switch len(parts) {
	case 1:
		return key, true
	case 2:
		if localePattern.MatchString(parts[1]) {
			key.Locale = parts[1]
			return key, true
		}
		if channelPattern.MatchString(parts[1]) {
			key.Channel = parts[1]
			return key, true
		}
		return domain.AttributeKey{}, false
	default:
		if !localePattern.MatchString(parts[1]) || !channelPattern.MatchString(parts[2]) {
			return domain.AttributeKey{}, false
		}
		key.Locale = parts[1]
		key.Channel = parts[2]
		return key, true
	}
}
