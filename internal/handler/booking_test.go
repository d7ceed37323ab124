package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/require"

    "github.com/dalsjofors/hyrservice/internal/model"
    "github.com/dalsjofors/hyrservice/internal/pricing"
    "github.com/dalsjofors/hyrservice/internal/repository"
    "github.com/dalsjofors/hyrservice/internal/service"
)

// fakeStore is a minimal in-memory backend for handler tests.  It keeps
// bookings in a map and serializes reserve transactions with a mutex.
type fakeStore struct {
    mu       sync.Mutex
    nextID   int64
    bookings map[int64]*model.Booking
    blocks   []*model.Block
}

func newFakeStore() *fakeStore {
    return &fakeStore{bookings: map[int64]*model.Booking{}}
}

type fakeTx struct {
    s    *fakeStore
    ids  []int64
    done bool
}

func (s *fakeStore) Begin(ctx context.Context, t model.TrailerType) (service.Tx, error) {
    s.mu.Lock()
    return &fakeTx{s: s}, nil
}

func (tx *fakeTx) FindBlockOverlap(ctx context.Context, t model.TrailerType, start, end time.Time) (*model.Block, error) {
    return tx.s.FindOverlap(ctx, t, start, end)
}

func (tx *fakeTx) CountActiveOverlapping(ctx context.Context, t model.TrailerType, start, end, now time.Time) (int, error) {
    return tx.s.count(t, start, end, now), nil
}

func (tx *fakeTx) InsertBooking(ctx context.Context, b *model.Booking) error {
    tx.s.nextID++
    b.ID = tx.s.nextID
    cp := *b
    tx.s.bookings[b.ID] = &cp
    tx.ids = append(tx.ids, b.ID)
    return nil
}

func (tx *fakeTx) SetBookingReference(ctx context.Context, id int64, ref string) error {
    tx.s.bookings[id].Reference = ref
    return nil
}

func (tx *fakeTx) Commit() error {
    if !tx.done {
        tx.done = true
        tx.s.mu.Unlock()
    }
    return nil
}

func (tx *fakeTx) Rollback() error {
    if !tx.done {
        tx.done = true
        for _, id := range tx.ids {
            delete(tx.s.bookings, id)
        }
        tx.s.mu.Unlock()
    }
    return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
    if b, ok := s.bookings[id]; ok {
        cp := *b
        return &cp, nil
    }
    return nil, repository.ErrNotFound
}

func (s *fakeStore) List(ctx context.Context, status *model.Status) ([]*model.Booking, error) {
    var out []*model.Booking
    for _, b := range s.bookings {
        if status == nil || b.Status == *status {
            cp := *b
            out = append(out, &cp)
        }
    }
    return out, nil
}

func (s *fakeStore) Confirm(ctx context.Context, id int64) (bool, error) {
    if b, ok := s.bookings[id]; ok && b.Status == model.StatusPendingPayment {
        b.Status = model.StatusConfirmed
        return true, nil
    }
    return false, nil
}

func (s *fakeStore) Cancel(ctx context.Context, id int64) (bool, error) {
    if b, ok := s.bookings[id]; ok && b.Status != model.StatusCancelled {
        b.Status = model.StatusCancelled
        b.CustomerPhone = nil
        b.CustomerEmail = nil
        b.ReceiptRequested = false
        return true, nil
    }
    return false, nil
}

func (s *fakeStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
    var n int64
    for _, b := range s.bookings {
        if b.Status == model.StatusPendingPayment && b.ExpiresAt != nil && b.ExpiresAt.Before(now) {
            b.Status = model.StatusCancelled
            n++
        }
    }
    return n, nil
}

func (s *fakeStore) SetSwishStatus(ctx context.Context, id int64, status string) error {
    if b, ok := s.bookings[id]; ok {
        st := status
        b.SwishStatus = &st
    }
    return nil
}

func (s *fakeStore) CountActiveOverlapping(ctx context.Context, t model.TrailerType, start, end, now time.Time) (int, error) {
    return s.count(t, start, end, now), nil
}

func (s *fakeStore) FindOverlap(ctx context.Context, t model.TrailerType, start, end time.Time) (*model.Block, error) {
    for _, blk := range s.blocks {
        if blk.TrailerType == t && model.Overlaps(blk.StartAt, blk.EndAt, start, end) {
            cp := *blk
            return &cp, nil
        }
    }
    return nil, nil
}

func (s *fakeStore) count(t model.TrailerType, start, end, now time.Time) int {
    n := 0
    for _, b := range s.bookings {
        if b.TrailerType == t && b.Active(now) && model.Overlaps(b.StartAt, b.EndAt, start, end) {
            n++
        }
    }
    return n
}

var handlerNow = time.Date(2026, 7, 6, 9, 0, 0, 0, time.UTC) // a Monday

func newHandlerService(store *fakeStore) *service.BookingService {
    return &service.BookingService{
        Begin:    store.Begin,
        Ledger:   store,
        Blocks:   store,
        Calendar: pricing.SwedishCalendar{},
        Now:      func() time.Time { return handlerNow },
    }
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
    var reader *strings.Reader
    if body == "" {
        reader = strings.NewReader("")
    } else {
        reader = strings.NewReader(body)
    }
    req := httptest.NewRequest(method, target, reader)
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func newBookingEcho(store *fakeStore) *echo.Echo {
    h := NewBookingHandler(newHandlerService(store))
    e := echo.New()
    e.GET("/api/price", h.Price)
    e.GET("/api/availability", h.Availability)
    e.POST("/api/hold", h.Hold)
    return e
}

func TestPriceEndpoint(t *testing.T) {
    e := newBookingEcho(newFakeStore())

    rec := doJSON(e, http.MethodGet, "/api/price?trailerType=GALLER&rentalType=TWO_HOURS&date=2026-07-06&startTime=10:00", "")
    require.Equal(t, http.StatusOK, rec.Code)
    var body map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    require.EqualValues(t, 200, body["price"])
    require.Equal(t, "SEK", body["currency"])

    // Full-day Saturday gets the weekend rate, no startTime needed.
    rec = doJSON(e, http.MethodGet, "/api/price?trailerType=KAP&rentalType=FULL_DAY&date=2026-07-11", "")
    require.Equal(t, http.StatusOK, rec.Code)
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    require.EqualValues(t, 300, body["price"])

    rec = doJSON(e, http.MethodGet, "/api/price?trailerType=BOAT&rentalType=FULL_DAY&date=2026-07-11", "")
    require.Equal(t, http.StatusBadRequest, rec.Code)

    rec = doJSON(e, http.MethodGet, "/api/price?trailerType=GALLER&rentalType=TWO_HOURS&date=2026-07-06", "")
    require.Equal(t, http.StatusBadRequest, rec.Code, "TWO_HOURS requires startTime")
}

func TestAvailabilityEndpoint(t *testing.T) {
    store := newFakeStore()
    e := newBookingEcho(store)

    url := "/api/availability?trailerType=GALLER&rentalType=TWO_HOURS&date=2026-07-06&startTime=10:00"
    rec := doJSON(e, http.MethodGet, url, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var body map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    require.Equal(t, true, body["available"])
    require.EqualValues(t, 2, body["remaining"])

    hold := `{"trailerType":"GALLER","rentalType":"TWO_HOURS","date":"2026-07-06","startTime":"10:00"}`
    require.Equal(t, http.StatusCreated, doJSON(e, http.MethodPost, "/api/hold", hold).Code)
    require.Equal(t, http.StatusCreated, doJSON(e, http.MethodPost, "/api/hold", hold).Code)

    rec = doJSON(e, http.MethodGet, url, "")
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    require.Equal(t, false, body["available"])
    require.EqualValues(t, 0, body["remaining"])
}

func TestHoldEndpoint(t *testing.T) {
    store := newFakeStore()
    e := newBookingEcho(store)

    hold := `{"trailerType":"KAP","rentalType":"TWO_HOURS","date":"2026-07-06","startTime":"10:00","customerPhone":"0701234567"}`
    rec := doJSON(e, http.MethodPost, "/api/hold", hold)
    require.Equal(t, http.StatusCreated, rec.Code)
    var body map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    require.EqualValues(t, 1, body["bookingId"])
    require.EqualValues(t, 200, body["price"])
    require.Equal(t, "DHS-20260706-000001", body["bookingReference"])
    require.Equal(t, handlerNow.Add(15*time.Minute).Format(time.RFC3339), body["expiresAt"])

    // Fill the pool: third hold conflicts.
    require.Equal(t, http.StatusCreated, doJSON(e, http.MethodPost, "/api/hold", hold).Code)
    rec = doJSON(e, http.MethodPost, "/api/hold", hold)
    require.Equal(t, http.StatusConflict, rec.Code)
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    require.NotContains(t, body, "block")
}

func TestHoldBlockedWindow(t *testing.T) {
    store := newFakeStore()
    store.blocks = append(store.blocks, &model.Block{
        ID:          9,
        TrailerType: model.TrailerGaller,
        StartAt:     time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC),
        EndAt:       time.Date(2026, 7, 7, 0, 0, 0, 0, time.UTC),
        Reason:      "maintenance",
    })
    e := newBookingEcho(store)

    hold := `{"trailerType":"GALLER","rentalType":"TWO_HOURS","date":"2026-07-06","startTime":"10:00"}`
    rec := doJSON(e, http.MethodPost, "/api/hold", hold)
    require.Equal(t, http.StatusConflict, rec.Code)
    var body map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    blk, ok := body["block"].(map[string]any)
    require.True(t, ok)
    require.Equal(t, "maintenance", blk["reason"])
}

func TestHoldValidation(t *testing.T) {
    e := newBookingEcho(newFakeStore())

    // Past window.
    rec := doJSON(e, http.MethodPost, "/api/hold",
        `{"trailerType":"GALLER","rentalType":"TWO_HOURS","date":"2026-07-05","startTime":"01:00"}`)
    require.Equal(t, http.StatusBadRequest, rec.Code)

    // Broken body.
    rec = doJSON(e, http.MethodPost, "/api/hold", `{"trailerType":`)
    require.Equal(t, http.StatusBadRequest, rec.Code)

    // Missing date.
    rec = doJSON(e, http.MethodPost, "/api/hold", `{"trailerType":"GALLER","rentalType":"FULL_DAY"}`)
    require.Equal(t, http.StatusBadRequest, rec.Code)
}
