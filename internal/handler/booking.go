package handler

import (
    "errors"   // for errors.Is / errors.As comparisons
    "net/http" // HTTP status codes
    "time"     // working with timestamps

    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/dalsjofors/hyrservice/internal/model"
    "github.com/dalsjofors/hyrservice/internal/service"
)

// BookingHandler exposes the public booking endpoints: price quotes,
// availability checks and hold creation.  All business rules live in the
// service; the handler only parses request parameters and maps service
// errors to HTTP status codes.
type BookingHandler struct {
    Service *service.BookingService
}

// NewBookingHandler constructs a BookingHandler.  The service must be
// non-nil.
func NewBookingHandler(svc *service.BookingService) *BookingHandler {
    if svc == nil {
        panic("nil service passed to NewBookingHandler")
    }
    return &BookingHandler{Service: svc}
}

// parseRentalParams reads the shared trailerType/rentalType/date/startTime
// parameters from a query or JSON body representation and returns the
// parsed types plus the rental start instant.  FULL_DAY rentals only need
// the date; TWO_HOURS rentals also need startTime (HH:MM).
func parseRentalParams(trailerType, rentalType, date, startTime string) (model.TrailerType, model.RentalType, time.Time, error) {
    tt, ok := model.ParseTrailerType(trailerType)
    if !ok {
        return "", "", time.Time{}, errors.New("invalid trailerType")
    }
    rt, ok := model.ParseRentalType(rentalType)
    if !ok {
        return "", "", time.Time{}, errors.New("invalid rentalType")
    }
    if date == "" {
        return "", "", time.Time{}, errors.New("date is required")
    }
    if rt == model.RentalFullDay {
        day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
        if err != nil {
            return "", "", time.Time{}, errors.New("invalid date")
        }
        return tt, rt, day, nil
    }
    if startTime == "" {
        return "", "", time.Time{}, errors.New("startTime required for TWO_HOURS")
    }
    start, err := time.ParseInLocation("2006-01-02T15:04", date+"T"+startTime, time.UTC)
    if err != nil {
        return "", "", time.Time{}, errors.New("invalid date or startTime")
    }
    return tt, rt, start, nil
}

// Price handles GET /api/price.  It quotes the rental price without
// touching the booking ledger, so the response is cacheable.
func (h *BookingHandler) Price(c echo.Context) error {
    tt, rt, start, err := parseRentalParams(
        c.QueryParam("trailerType"), c.QueryParam("rentalType"),
        c.QueryParam("date"), c.QueryParam("startTime"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    price, err := h.Service.Quote(rt, tt, start)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusOK, echo.Map{"price": price, "currency": "SEK"})
}

// Availability handles GET /api/availability.  It reports how many
// trailers of the requested type remain free for the derived window.
func (h *BookingHandler) Availability(c echo.Context) error {
    tt, rt, start, err := parseRentalParams(
        c.QueryParam("trailerType"), c.QueryParam("rentalType"),
        c.QueryParam("date"), c.QueryParam("startTime"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    winStart, winEnd := service.Window(rt, start)
    remaining, err := h.Service.Available(c.Request().Context(), tt, winStart, winEnd)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"available": remaining > 0, "remaining": remaining})
}

// holdRequest is the POST /api/hold body.
type holdRequest struct {
    TrailerType      string `json:"trailerType"`
    RentalType       string `json:"rentalType"`
    Date             string `json:"date"`
    StartTime        string `json:"startTime"`
    CustomerPhone    string `json:"customerPhone"`
    CustomerEmail    string `json:"customerEmail"`
    ReceiptRequested bool   `json:"receiptRequested"`
}

// Hold handles POST /api/hold.  On success it creates a PENDING_PAYMENT
// booking with a 15 minute payment window and returns 201 with the booking
// ID, reference, price and expiry.  A blocked window returns 409 with the
// block details; a full pool returns 409 without them.
func (h *BookingHandler) Hold(c echo.Context) error {
    var body holdRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    tt, rt, start, err := parseRentalParams(body.TrailerType, body.RentalType, body.Date, body.StartTime)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    b, err := h.Service.Reserve(c.Request().Context(), service.ReserveRequest{
        TrailerType:      tt,
        RentalType:       rt,
        StartAt:          start,
        CustomerPhone:    body.CustomerPhone,
        CustomerEmail:    body.CustomerEmail,
        ReceiptRequested: body.ReceiptRequested,
    })
    if err != nil {
        var invalid *service.InvalidWindowError
        if errors.As(err, &invalid) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": invalid.Reason})
        }
        var blocked *service.SlotBlockedError
        if errors.As(err, &blocked) {
            return c.JSON(http.StatusConflict, echo.Map{
                "error": "slot blocked",
                "block": blockJSON(blocked.Block),
            })
        }
        if errors.Is(err, service.ErrSlotTaken) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "no trailer available for the requested time"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    return c.JSON(http.StatusCreated, echo.Map{
        "bookingId":        b.ID,
        "bookingReference": b.Reference,
        "price":            b.Price,
        "expiresAt":        b.ExpiresAt.UTC().Format(time.RFC3339),
    })
}

// bookingJSON maps a booking row to its public JSON form.
func bookingJSON(b *model.Booking) echo.Map {
    m := echo.Map{
        "id":               b.ID,
        "bookingReference": b.Reference,
        "trailerType":      b.TrailerType,
        "rentalType":       b.RentalType,
        "startDatetime":    b.StartAt.UTC().Format(time.RFC3339),
        "endDatetime":      b.EndAt.UTC().Format(time.RFC3339),
        "price":            b.Price,
        "status":           b.Status,
        "receiptRequested": b.ReceiptRequested,
        "createdAt":        b.CreatedAt.UTC().Format(time.RFC3339),
    }
    if b.ExpiresAt != nil {
        m["expiresAt"] = b.ExpiresAt.UTC().Format(time.RFC3339)
    }
    if b.SwishStatus != nil {
        m["swishStatus"] = *b.SwishStatus
    }
    return m
}

// blockJSON maps an admin block to its JSON form.
func blockJSON(blk *model.Block) echo.Map {
    return echo.Map{
        "id":          blk.ID,
        "trailerType": blk.TrailerType,
        "startDatetime": blk.StartAt.UTC().Format(time.RFC3339),
        "endDatetime":   blk.EndAt.UTC().Format(time.RFC3339),
        "reason":        blk.Reason,
        "createdAt":     blk.CreatedAt.UTC().Format(time.RFC3339),
    }
}
