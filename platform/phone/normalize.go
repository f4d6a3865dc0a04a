// Package phone formats lead phone numbers with libphonenumber.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion applies when neither the number nor the caller names a country.
const DefaultRegion = "US"

// NormalizeE164 returns input in E.164 form. Numbers without a "+" prefix
// are read in region. Input that does not parse as a valid number is kept
// as typed, trimmed, so a lead is never rejected over its phone field.
func NormalizeE164(input, region string) string {
	value := strings.TrimSpace(input)
	if value == "" {
		return ""
	}
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}

	num, err := phonenumbers.Parse(value, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return value
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
