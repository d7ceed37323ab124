package handler

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/dalsjofors/hyrservice/internal/model"
    "github.com/dalsjofors/hyrservice/internal/repository"
    "github.com/dalsjofors/hyrservice/internal/service"
    "github.com/dalsjofors/hyrservice/internal/utils"
)

// AdminHandler implements the dashboard endpoints: login, admin blocks,
// booking listing and the manual expiry sweep.  Auth is enforced by
// middleware; handlers assume the request is already authenticated.
type AdminHandler struct {
    Blocks   *repository.BlockRepo
    Bookings *repository.BookingRepo
    Service  *service.BookingService

    AdminUser     string
    AdminPassHash string
    JWTSecret     string
    SessionTTLMin int
}

// Login handles POST /api/admin/login.  It checks the admin credentials
// against the configured bcrypt hash and returns a signed session token.
// Password login is disabled when no hash is configured.
func (h *AdminHandler) Login(c echo.Context) error {
    var body struct {
        Username string `json:"username"`
        Password string `json:"password"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if h.AdminPassHash == "" {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "password login disabled"})
    }
    if body.Username != h.AdminUser || !utils.VerifyPassword(h.AdminPassHash, body.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    tok, err := utils.NewSessionToken(h.JWTSecret, body.Username, h.SessionTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token signing failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "token":     tok.Token,
        "expiresAt": tok.Exp.Format(time.RFC3339),
    })
}

// blockRequest is the POST /api/admin/blocks body.
type blockRequest struct {
    TrailerType   string `json:"trailerType"`
    StartDatetime string `json:"startDatetime"`
    EndDatetime   string `json:"endDatetime"`
    Reason        string `json:"reason"`
}

// CreateBlock handles POST /api/admin/blocks.  A block makes the window
// unbookable for one trailer type; existing bookings are left untouched.
func (h *AdminHandler) CreateBlock(c echo.Context) error {
    var body blockRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    tt, ok := model.ParseTrailerType(body.TrailerType)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trailerType"})
    }
    start, err := parseTimestamp(body.StartDatetime)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid startDatetime"})
    }
    end, err := parseTimestamp(body.EndDatetime)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid endDatetime"})
    }
    if body.Reason == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason is required"})
    }
    blk, err := h.Blocks.Create(c.Request().Context(), tt, start, end, body.Reason, time.Now().UTC())
    if err != nil {
        if errors.Is(err, repository.ErrInvalidRange) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "endDatetime must be after startDatetime"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusCreated, blockJSON(blk))
}

// ListBlocks handles GET /api/admin/blocks with optional from/to range
// filters.
func (h *AdminHandler) ListBlocks(c echo.Context) error {
    var from, to *time.Time
    if raw := c.QueryParam("from"); raw != "" {
        t, err := parseTimestamp(raw)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from"})
        }
        from = &t
    }
    if raw := c.QueryParam("to"); raw != "" {
        t, err := parseTimestamp(raw)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to"})
        }
        to = &t
    }
    blocks, err := h.Blocks.List(c.Request().Context(), from, to)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]echo.Map, 0, len(blocks))
    for _, blk := range blocks {
        out = append(out, blockJSON(blk))
    }
    return c.JSON(http.StatusOK, echo.Map{"blocks": out})
}

// DeleteBlock handles DELETE /api/admin/blocks/:id.
func (h *AdminHandler) DeleteBlock(c echo.Context) error {
    id, err := strconv.ParseInt(c.Param("id"), 10, 64)
    if err != nil || id <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid block id"})
    }
    deleted, err := h.Blocks.Delete(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !deleted {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "block not found"})
    }
    return c.NoContent(http.StatusNoContent)
}

// ListBookings handles GET /api/admin/bookings with an optional status
// filter.
func (h *AdminHandler) ListBookings(c echo.Context) error {
    var status *model.Status
    if raw := c.QueryParam("status"); raw != "" {
        s := model.Status(raw)
        switch s {
        case model.StatusPendingPayment, model.StatusConfirmed, model.StatusCancelled:
            status = &s
        default:
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
        }
    }
    bookings, err := h.Bookings.List(c.Request().Context(), status)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]echo.Map, 0, len(bookings))
    for _, b := range bookings {
        out = append(out, bookingJSON(b))
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// ExpirePending handles POST /api/admin/expire-pending.  It cancels every
// pending booking whose payment window has lapsed.  The same sweep also
// runs on a timer, so this endpoint mostly serves tests and operations.
func (h *AdminHandler) ExpirePending(c echo.Context) error {
    n, err := h.Service.ExpireDue(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"expired": n})
}

// parseTimestamp accepts RFC 3339 and the shorter minute-resolution form
// the dashboard sends.
func parseTimestamp(raw string) (time.Time, error) {
    if t, err := time.Parse(time.RFC3339, raw); err == nil {
        return t.UTC(), nil
    }
    t, err := time.ParseInLocation("2006-01-02T15:04", raw, time.UTC)
    if err != nil {
        return time.Time{}, err
    }
    return t, nil
}
