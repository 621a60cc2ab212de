package annotation

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/agentic-research/fmsx/api"
)

// Formatter renders one annotation value. units may be empty.
type Formatter func(value any, units string) string

var printer = message.NewPrinter(language.AmericanEnglish)

// DateLayout is the en-US short date used for Date and Date/Time values.
const DateLayout = "1/2/2006"

// FormatterFor selects a formatter purely by annotation type.
func FormatterFor(t Type) Formatter {
	switch t {
	case Date, DateTime:
		return formatDate
	case Number:
		return formatNumber
	default:
		return formatIdentity
	}
}

func formatDate(v any, _ string) string {
	ts, ok := api.ParseTime(v)
	if !ok {
		return fmt.Sprint(v)
	}
	return ts.UTC().Format(DateLayout)
}

func formatNumber(v any, units string) string {
	f, ok := api.ToFloat(v)
	if !ok {
		return fmt.Sprint(v)
	}
	s := printer.Sprint(number.Decimal(f))
	if units != "" {
		s += " " + units
	}
	return s
}

func formatIdentity(v any, _ string) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
