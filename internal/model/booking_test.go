package model

import (
    "testing"
    "time"

    "github.com/stretchr/testify/require"
)

func ts(s string) time.Time {
    t, err := time.Parse("2006-01-02T15:04", s)
    if err != nil {
        panic(err)
    }
    return t
}

func TestOverlaps(t *testing.T) {
    cases := []struct {
        name                           string
        aStart, aEnd, bStart, bEnd     string
        want                           bool
    }{
        {"identical", "2026-07-01T10:00", "2026-07-01T12:00", "2026-07-01T10:00", "2026-07-01T12:00", true},
        {"contained", "2026-07-01T10:00", "2026-07-01T12:00", "2026-07-01T10:30", "2026-07-01T11:00", true},
        {"partial", "2026-07-01T10:00", "2026-07-01T12:00", "2026-07-01T11:00", "2026-07-01T13:00", true},
        {"touching ends do not overlap", "2026-07-01T10:00", "2026-07-01T12:00", "2026-07-01T12:00", "2026-07-01T14:00", false},
        {"touching starts do not overlap", "2026-07-01T12:00", "2026-07-01T14:00", "2026-07-01T10:00", "2026-07-01T12:00", false},
        {"disjoint", "2026-07-01T10:00", "2026-07-01T12:00", "2026-07-02T10:00", "2026-07-02T12:00", false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            got := Overlaps(ts(tc.aStart), ts(tc.aEnd), ts(tc.bStart), ts(tc.bEnd))
            require.Equal(t, tc.want, got)
            // symmetric
            require.Equal(t, tc.want, Overlaps(ts(tc.bStart), ts(tc.bEnd), ts(tc.aStart), ts(tc.aEnd)))
        })
    }
}

func TestWindows(t *testing.T) {
    start, end := TwoHourWindow(ts("2026-07-01T10:00"))
    require.Equal(t, ts("2026-07-01T10:00"), start)
    require.Equal(t, ts("2026-07-01T12:00"), end)

    start, end = FullDayWindow(ts("2026-07-01T15:45"))
    require.Equal(t, ts("2026-07-01T00:00"), start)
    require.Equal(t, ts("2026-07-01T23:59"), end)
}

func TestFullDayAndTwoHourSameDayOverlap(t *testing.T) {
    dayStart, dayEnd := FullDayWindow(ts("2026-07-01T00:00"))
    hourStart, hourEnd := TwoHourWindow(ts("2026-07-01T22:30"))
    require.True(t, Overlaps(dayStart, dayEnd, hourStart, hourEnd))
}

func TestBookingReference(t *testing.T) {
    created := ts("2026-05-09T14:30")
    require.Equal(t, "DHS-20260509-000042", BookingReference(created, 42))
    require.Equal(t, "DHS-20260509-123456", BookingReference(created, 123456))
}

func TestIsTestReference(t *testing.T) {
    require.True(t, IsTestReference("TEST-20260509-000001"))
    require.False(t, IsTestReference("DHS-20260509-000001"))
    require.False(t, IsTestReference(""))
}

func TestParseTrailerType(t *testing.T) {
    tt, ok := ParseTrailerType(" galler ")
    require.True(t, ok)
    require.Equal(t, TrailerGaller, tt)

    tt, ok = ParseTrailerType("KAP")
    require.True(t, ok)
    require.Equal(t, TrailerKap, tt)

    _, ok = ParseTrailerType("BOAT")
    require.False(t, ok)
}

func TestParseRentalType(t *testing.T) {
    rt, ok := ParseRentalType("full_day")
    require.True(t, ok)
    require.Equal(t, RentalFullDay, rt)

    _, ok = ParseRentalType("HOURLY")
    require.False(t, ok)
}

func TestActivePredicate(t *testing.T) {
    now := ts("2026-07-01T10:00")
    later := ts("2026-07-01T10:15")

    confirmed := &Booking{Status: StatusConfirmed}
    require.True(t, confirmed.Active(now))

    cancelled := &Booking{Status: StatusCancelled}
    require.False(t, cancelled.Active(now))

    pending := &Booking{Status: StatusPendingPayment, ExpiresAt: &later}
    require.True(t, pending.Active(now))
    require.True(t, pending.Active(later), "expiry deadline itself still counts")
    require.False(t, pending.Active(later.Add(time.Second)))

    noExpiry := &Booking{Status: StatusPendingPayment}
    require.True(t, noExpiry.Active(now))
}
