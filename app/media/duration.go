package media

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNotBeginWithP         = errors.New("duration does not begin with P")
	ErrTimePartNotBeginWithT = errors.New("time unit before the T marker")
	ErrUnknownElement        = errors.New("unknown element in duration")
	ErrDiscontinuous         = errors.New("trailing digits without a unit")
)

type Unit int

const (
	UnitSecond Unit = iota
	UnitMinute
	UnitHour
	UnitDay
	UnitWeek
	UnitMonth
	UnitYear
)

// Fixed-length unit seconds: months are 30 days, years 365.25 days.
func (u Unit) Seconds() float64 {
	switch u {
	case UnitSecond:
		return 1
	case UnitMinute:
		return 60
	case UnitHour:
		return 60 * 60
	case UnitDay:
		return 24 * 60 * 60
	case UnitWeek:
		return 7 * 24 * 60 * 60
	case UnitMonth:
		return 30 * 24 * 60 * 60
	default:
		return 365.25 * 24 * 60 * 60
	}
}

// stepDown returns the next smaller unit and how many of it make up
// one of the receiver.
func (u Unit) stepDown() (int, Unit) {
	switch u {
	case UnitYear:
		return 12, UnitMonth
	case UnitMonth:
		return 30, UnitDay
	case UnitWeek:
		return 7, UnitDay
	case UnitDay:
		return 24, UnitHour
	case UnitHour:
		return 60, UnitMinute
	case UnitMinute:
		return 60, UnitSecond
	default:
		return 1, UnitSecond
	}
}

// Duration is a parsed ISO-8601 duration. Seconds is exact via unit
// multiplication; Components is whole-unit bookkeeping with the
// fractional leftover carried into the next smaller unit.
type Duration struct {
	Seconds    float64
	Components map[Unit]int
}

func (d Duration) Round() int {
	return int(math.Round(d.Seconds))
}

// ParseISODuration parses durations like PT21M3S or P1Y2M3DT4H5M6S.
// A T marker switches M from months to minutes and enables H and S;
// either of those before T is an error. Decimal values (dot or comma)
// are allowed and their fractional part steps down one unit.
func ParseISODuration(value string) (Duration, error) {
	if !strings.HasPrefix(value, "P") {
		return Duration{}, ErrNotBeginWithP
	}

	d := Duration{Components: make(map[Unit]int)}
	var numberValue strings.Builder
	timePart := false

	addUnit := func(unit Unit) {
		raw := strings.ReplaceAll(numberValue.String(), ",", ".")
		numberValue.Reset()
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return
		}

		d.Seconds += v * unit.Seconds()

		// Weeks book-keep as days.
		if unit == UnitWeek {
			v *= 7
			unit = UnitDay
		}

		whole := math.Floor(v)
		d.Components[unit] += int(whole)

		if remainder := v - whole; remainder > 0.0001 {
			factor, smaller := unit.stepDown()
			d.Components[smaller] += int(math.Floor(remainder * float64(factor)))
		}
	}

	for _, char := range value {
		switch {
		case char == 'P':
			continue
		case char == 'T':
			timePart = true
		case char >= '0' && char <= '9' || char == '.' || char == ',':
			numberValue.WriteRune(char)
		case char == 'Y':
			addUnit(UnitYear)
		case char == 'W':
			addUnit(UnitWeek)
		case char == 'D':
			addUnit(UnitDay)
		case char == 'M':
			if timePart {
				addUnit(UnitMinute)
			} else {
				addUnit(UnitMonth)
			}
		case char == 'H':
			if !timePart {
				return Duration{}, ErrTimePartNotBeginWithT
			}
			addUnit(UnitHour)
		case char == 'S':
			if !timePart {
				return Duration{}, ErrTimePartNotBeginWithT
			}
			addUnit(UnitSecond)
		default:
			return Duration{}, ErrUnknownElement
		}
	}

	if numberValue.Len() > 0 {
		return Duration{}, ErrDiscontinuous
	}

	return d, nil
}
