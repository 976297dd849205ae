package receipt

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTimezone is the producer-facing local time zone (Piauí, UTC-3).
const DefaultTimezone = "America/Fortaleza"

// NewProtocolID derives the display protocol from the submission instant:
// Unix milliseconds in base 36, upper-cased. It is cosmetic and carries no
// uniqueness guarantee beyond millisecond granularity.
func NewProtocolID(t time.Time) string {
	return strings.ToUpper(strconv.FormatInt(t.UnixMilli(), 36))
}

// FormatDate renders t as dd/mm/yyyy in loc. A nil loc means UTC.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02/01/2006")
}

// LoadLocation resolves name, falling back to a fixed UTC-3 zone when the
// tz database is unavailable in the runtime image.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

// FormatHectares prints an area the way the receipt shows it: shortest
// decimal form with a dot separator, followed by the unit.
func FormatHectares(area decimal.Decimal) string {
	return area.String() + " hectares"
}

func formatCount(n int) string {
	return strconv.Itoa(n)
}
