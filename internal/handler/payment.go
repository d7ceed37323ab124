package handler

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/dalsjofors/hyrservice/internal/model"
    "github.com/dalsjofors/hyrservice/internal/payment"
    "github.com/dalsjofors/hyrservice/internal/repository"
    "github.com/dalsjofors/hyrservice/internal/service"
)

// BookingReader is the slice of the booking repository the payment flow
// needs.
type BookingReader interface {
    GetByID(ctx context.Context, id int64) (*model.Booking, error)
    SetSwishRequest(ctx context.Context, id int64, token, requestID string) error
}

// PaymentHandler drives the Swish payment flow for a booking: creating or
// returning the payment request, receiving Swish callbacks and the dev
// endpoint that settles a payment by hand.
type PaymentHandler struct {
    Bookings BookingReader
    Service  *service.BookingService
    Swish    *payment.SwishClient
}

// NewPaymentHandler constructs a PaymentHandler.  All dependencies must be
// non-nil.
func NewPaymentHandler(bookings BookingReader, svc *service.BookingService, swish *payment.SwishClient) *PaymentHandler {
    if bookings == nil || svc == nil || swish == nil {
        panic("nil dependency passed to NewPaymentHandler")
    }
    return &PaymentHandler{Bookings: bookings, Service: svc, Swish: swish}
}

// Details handles GET /api/payment?bookingId=N.  For a pending booking it
// returns the existing Swish request or creates a new one, plus the QR
// payload and image URL.  Confirmed and cancelled bookings get a 400.
func (h *PaymentHandler) Details(c echo.Context) error {
    id, err := parseBookingID(c.QueryParam("bookingId"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    ctx := c.Request().Context()
    b, err := h.Bookings.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "Booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if b.Status != model.StatusPendingPayment {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Booking is not awaiting payment"})
    }

    token, requestID := "", ""
    if b.SwishToken != nil && b.SwishRequestID != nil {
        token, requestID = *b.SwishToken, *b.SwishRequestID
    } else {
        req, err := h.Swish.CreatePaymentRequest(b.Price, paymentMessage(b.ID))
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment request failed"})
        }
        if err := h.Bookings.SetSwishRequest(ctx, b.ID, req.Token, req.RequestID); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
        token, requestID = req.Token, req.RequestID
    }

    payload := h.Swish.QRPayload(b.Price, paymentMessage(b.ID))
    return c.JSON(http.StatusOK, echo.Map{
        "bookingId": b.ID,
        "price":     b.Price,
        "swishId":   token,
        "requestId": requestID,
        "payload":   payload,
        "qrUrl":     h.Swish.QRURL(payload),
    })
}

// swishCallbackBody is the JSON payload Swish posts when a payment request
// settles.
type swishCallbackBody struct {
    PaymentReference any    `json:"paymentReference"`
    Status           string `json:"status"`
}

// Callback handles POST /api/swish/callback.  PAID confirms the booking
// and triggers notifications; CANCELLED, EXPIRED and ERROR cancel it.  The
// endpoint always answers 200 to a well-formed callback so Swish stops
// retrying, and it is safe to receive the same callback twice.
func (h *PaymentHandler) Callback(c echo.Context) error {
    var body swishCallbackBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid JSON"})
    }
    id, err := callbackBookingID(body.PaymentReference)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    if err := h.applyStatus(c, id, strings.ToUpper(body.Status)); err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// DevMark handles POST /api/dev/swish/mark?bookingId=N&status=S.  It is a
// manual stand-in for the Swish callback while the integration runs in
// mock mode, and sits behind admin auth.
func (h *PaymentHandler) DevMark(c echo.Context) error {
    id, err := parseBookingID(c.QueryParam("bookingId"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    status := strings.ToUpper(c.QueryParam("status"))
    if err := h.applyStatus(c, id, status); err != nil {
        return err
    }
    b, err := h.Bookings.GetByID(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "Booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true, "bookingStatus": b.Status})
}

// applyStatus maps a Swish payment status onto the booking lifecycle.
// Unknown statuses are ignored, matching how the callback endpoint must
// never bounce a payload Swish considers delivered.
func (h *PaymentHandler) applyStatus(c echo.Context, id int64, status string) error {
    ctx := c.Request().Context()
    var err error
    switch status {
    case "PAID":
        _, err = h.Service.MarkPaid(ctx, id, status)
    case "CANCELLED", "EXPIRED", "ERROR", "FAILED", "DECLINED":
        _, err = h.Service.MarkFailed(ctx, id, status)
    default:
        return nil
    }
    if err != nil && !errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return nil
}

func parseBookingID(raw string) (int64, error) {
    if raw == "" {
        return 0, errors.New("bookingId is required")
    }
    id, err := strconv.ParseInt(raw, 10, 64)
    if err != nil || id <= 0 {
        return 0, errors.New("bookingId must be a positive integer")
    }
    return id, nil
}

// callbackBookingID accepts the paymentReference as either a JSON number
// or a string, which the Swish simulator alternates between.
func callbackBookingID(ref any) (int64, error) {
    switch v := ref.(type) {
    case float64:
        if v <= 0 {
            return 0, errors.New("paymentReference must be a positive integer")
        }
        return int64(v), nil
    case string:
        return parseBookingID(v)
    case nil:
        return 0, errors.New("paymentReference is required")
    default:
        return 0, errors.New("paymentReference must be an integer")
    }
}

// paymentMessage is the Swish message shown in the payer's app.
func paymentMessage(id int64) string {
    return fmt.Sprintf("DHS-%d", id)
}
