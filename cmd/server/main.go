package main // Entry point package

import (
    "context"
    "log"
    "time"

    "github.com/joho/godotenv"    // loads .env files into the environment
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/dalsjofors/hyrservice/internal/config"
    "github.com/dalsjofors/hyrservice/internal/database"
    "github.com/dalsjofors/hyrservice/internal/handler"
    "github.com/dalsjofors/hyrservice/internal/model"
    "github.com/dalsjofors/hyrservice/internal/notify"
    "github.com/dalsjofors/hyrservice/internal/payment"
    "github.com/dalsjofors/hyrservice/internal/pricing"
    "github.com/dalsjofors/hyrservice/internal/queue"
    "github.com/dalsjofors/hyrservice/internal/repository"
    "github.com/dalsjofors/hyrservice/internal/router"
    "github.com/dalsjofors/hyrservice/internal/service"
)

// expirySweepInterval controls how often lapsed payment holds are swept.
const expirySweepInterval = time.Minute

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database connect failed: %v", err)
    }
    if err := database.EnsureSchema(context.Background(), db); err != nil {
        log.Fatalf("schema init failed: %v", err)
    }

    bookings := repository.NewBookingRepo(db)
    blocks := repository.NewBlockRepo(db)
    store := repository.NewStore(db, bookings, blocks)

    sms := notify.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
    adminNumber, ok := notify.NormalizeSwedishMobile(cfg.AdminSMSNumber)
    if !ok {
        log.Printf("ADMIN_SMS_NUMBER is invalid: %q; admin SMS disabled", cfg.AdminSMSNumber)
    }
    coordinator := &notify.Coordinator{
        SendLog:     bookings,
        SMS:         sms,
        Webhook:     notify.NewWebhookSender(cfg.NotifyWebhookURL, cfg.NotifyWebhookSecret),
        AdminNumber: adminNumber,
    }

    events := queue.NewPublisher(queue.BrokerURL())

    svc := &service.BookingService{
        Begin: func(ctx context.Context, t model.TrailerType) (service.Tx, error) {
            return store.Begin(ctx, t)
        },
        Ledger:   bookings,
        Blocks:   blocks,
        Calendar: pricing.SwedishCalendar{},
        OnConfirmed: func(ctx context.Context, b *model.Booking) {
            coordinator.BookingPaid(ctx, b)
            ev := queue.BookingConfirmedEvent{
                BookingID:        b.ID,
                BookingReference: b.Reference,
                TrailerType:      string(b.TrailerType),
                RentalType:       string(b.RentalType),
                StartsAt:         b.StartAt.UTC().Format(time.RFC3339),
                EndsAt:           b.EndAt.UTC().Format(time.RFC3339),
                PriceSEK:         b.Price,
                ConfirmedAt:      time.Now().UTC().Format(time.RFC3339),
            }
            if b.SwishStatus != nil {
                ev.SwishStatus = *b.SwishStatus
            }
            // Event delivery is best effort; notifications above already ran.
            if err := events.Confirmed(ctx, ev); err != nil {
                log.Printf("booking.confirmed publish failed: %v", err)
            }
        },
    }

    swish := payment.NewSwishClient(payment.SwishConfig{
        PayeeAlias:  cfg.SwishPayee,
        CallbackURL: cfg.SwishCallbackURL,
        Mock:        cfg.SwishMock,
    })

    // Background sweep cancels pending holds whose payment window lapsed.
    go func() {
        ticker := time.NewTicker(expirySweepInterval)
        defer ticker.Stop()
        for range ticker.C {
            ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
            if n, err := svc.ExpireDue(ctx); err != nil {
                log.Printf("expiry sweep failed: %v", err)
            } else if n > 0 {
                log.Printf("expiry sweep cancelled %d booking(s)", n)
            }
            cancel()
        }
    }()

    // Consume booking.confirmed events into logs/booking.log.
    go queue.NewConsumer(queue.BrokerURL()).Run()

    e := echo.New()
    router.Register(e, router.Deps{
        DB:    db,
        Redis: config.NewRedisClient(),
        Booking: handler.NewBookingHandler(svc),
        Payment: handler.NewPaymentHandler(bookings, svc, swish),
        Admin: &handler.AdminHandler{
            Blocks:        blocks,
            Bookings:      bookings,
            Service:       svc,
            AdminUser:     cfg.AdminUser,
            AdminPassHash: cfg.AdminPassHash,
            JWTSecret:     cfg.JWTSecret,
            SessionTTLMin: cfg.SessionTTLMin,
        },
        AdminToken: cfg.AdminToken,
        JWTSecret:  cfg.JWTSecret,
    })

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
