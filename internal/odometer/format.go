package odometer

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var dutch = message.NewPrinter(language.Dutch)

// FormatKm renders an odometer value the way Dutch users read it:
// "12.345" for whole kilometres, "12.345,6" otherwise.
func FormatKm(km float64) string {
	if km == math.Trunc(km) {
		return dutch.Sprintf("%d", int64(km))
	}
	return dutch.Sprintf("%.1f", km)
}
