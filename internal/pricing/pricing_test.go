package pricing

import (
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "github.com/dalsjofors/hyrservice/internal/model"
)

func day(s string) time.Time {
    t, err := time.Parse("2006-01-02", s)
    if err != nil {
        panic(err)
    }
    return t
}

func TestTwoHourFlatRate(t *testing.T) {
    // Two-hour hires cost the same on weekdays, weekends and holidays.
    for _, d := range []string{"2026-07-01", "2026-07-04", "2026-06-06"} {
        for _, trailer := range []model.TrailerType{model.TrailerGaller, model.TrailerKap} {
            price, err := Price(model.RentalTwoHours, trailer, day(d), SwedishCalendar{})
            require.NoError(t, err)
            require.Equal(t, TwoHourPrice, price)
        }
    }
}

func TestFullDayRates(t *testing.T) {
    cases := []struct {
        name string
        date string
        want int
    }{
        {"monday", "2026-07-06", FullDayWeekdayPrice},
        {"thursday", "2026-07-09", FullDayWeekdayPrice},
        {"friday priced as weekend", "2026-07-10", FullDayWeekendPrice},
        {"saturday", "2026-07-11", FullDayWeekendPrice},
        {"sunday", "2026-07-12", FullDayWeekendPrice},
        {"national day on a saturday", "2026-06-06", FullDayWeekendPrice},
        {"midweek holiday", "2026-05-14", FullDayWeekendPrice}, // Ascension, a Thursday
        {"epiphany on a tuesday", "2026-01-06", FullDayWeekendPrice},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            price, err := Price(model.RentalFullDay, model.TrailerGaller, day(tc.date), SwedishCalendar{})
            require.NoError(t, err)
            require.Equal(t, tc.want, price)
        })
    }
}

func TestPriceRejectsUnknownTypes(t *testing.T) {
    _, err := Price(model.RentalType("WEEKLY"), model.TrailerGaller, day("2026-07-06"), SwedishCalendar{})
    require.Error(t, err)

    _, err = Price(model.RentalFullDay, model.TrailerType("BOAT"), day("2026-07-06"), SwedishCalendar{})
    require.Error(t, err)
}

func TestCalendarFunc(t *testing.T) {
    always := CalendarFunc(func(time.Time) bool { return true })
    price, err := Price(model.RentalFullDay, model.TrailerKap, day("2026-07-06"), always)
    require.NoError(t, err)
    require.Equal(t, FullDayWeekendPrice, price)

    never := CalendarFunc(func(time.Time) bool { return false })
    price, err = Price(model.RentalFullDay, model.TrailerKap, day("2026-07-06"), never)
    require.NoError(t, err)
    require.Equal(t, FullDayWeekdayPrice, price)
}
