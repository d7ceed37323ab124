// Package pricing computes booking prices from the rental type and the
// start date.  The weekend-or-holiday determination is a collaborator
// behind the Calendar interface so that the booking service can be tested
// with a fixed calendar.
package pricing

import (
    "fmt"
    "time"

    "github.com/dalsjofors/hyrservice/internal/model"
)

// Prices in SEK, whole kronor.
const (
    TwoHourPrice        = 200
    FullDayWeekdayPrice = 250
    FullDayWeekendPrice = 300
)

// Calendar answers whether a date is priced at the weekend-or-holiday rate.
type Calendar interface {
    IsWeekendOrHoliday(day time.Time) bool
}

// CalendarFunc adapts a plain function to the Calendar interface.
type CalendarFunc func(day time.Time) bool

func (f CalendarFunc) IsWeekendOrHoliday(day time.Time) bool { return f(day) }

// Price returns the price for a booking starting at start.  Two-hour hires
// are flat rate; full-day hires use the weekday rate Monday through
// Thursday (unless the date is a holiday) and the weekend rate otherwise.
func Price(rental model.RentalType, trailer model.TrailerType, start time.Time, cal Calendar) (int, error) {
    if trailer != model.TrailerGaller && trailer != model.TrailerKap {
        return 0, fmt.Errorf("pricing: unknown trailer type %q", trailer)
    }
    switch rental {
    case model.RentalTwoHours:
        return TwoHourPrice, nil
    case model.RentalFullDay:
        if cal.IsWeekendOrHoliday(start) || isFriday(start) {
            return FullDayWeekendPrice, nil
        }
        return FullDayWeekdayPrice, nil
    }
    return 0, fmt.Errorf("pricing: unknown rental type %q", rental)
}

// Fridays are billed at the weekend rate even though the calendar only
// reports Saturday/Sunday and holidays.
func isFriday(day time.Time) bool {
    return day.Weekday() == time.Friday
}
