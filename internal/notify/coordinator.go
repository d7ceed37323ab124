package notify

import (
    "context"
    "fmt"
    "log"
    "time"

    "github.com/dalsjofors/hyrservice/internal/model"
)

// SendLog records which notifications for a booking have gone out and
// guards the receipt webhook against concurrent delivery.
type SendLog interface {
    MarkAdminSMSSent(ctx context.Context, id int64, at time.Time) error
    MarkCustomerSMSSent(ctx context.Context, id int64, at time.Time) error
    ClaimReceiptSend(ctx context.Context, id int64, at time.Time) (bool, error)
    ReleaseReceiptSend(ctx context.Context, id int64) (bool, error)
    MarkReceiptSent(ctx context.Context, id int64, at time.Time) error
}

// Coordinator runs the confirmed-booking notifications.  Every send is
// recorded in the booking row, so re-running it after a partial failure
// only retries what has not gone out yet.
type Coordinator struct {
    SendLog     SendLog
    SMS         SMSSender
    Webhook     *WebhookSender
    AdminNumber string
    Now         func() time.Time
}

func (c *Coordinator) now() time.Time {
    if c.Now != nil {
        return c.Now().UTC()
    }
    return time.Now().UTC()
}

// BookingPaid sends the admin SMS, the customer SMS and, when requested,
// the receipt webhook for a confirmed booking.  Each channel fails
// independently; an error in one never suppresses the others.
func (c *Coordinator) BookingPaid(ctx context.Context, b *model.Booking) {
    c.sendAdminSMS(ctx, b)
    c.sendCustomerSMS(ctx, b)
    c.sendReceiptWebhook(ctx, b)
}

// sendAdminSMS notifies the admin exactly once per booking.  A failed send
// is not retried; the admin sees the booking in the dashboard regardless.
func (c *Coordinator) sendAdminSMS(ctx context.Context, b *model.Booking) {
    if b.SMSAdminSentAt != nil || c.SMS == nil || c.AdminNumber == "" {
        return
    }
    msg := fmt.Sprintf("Ny bokning %s: %s, %s, %d kr.",
        b.Reference, trailerLabel(b.TrailerType), periodLabel(b), b.Price)
    if err := c.SMS.SendSMS(ctx, c.AdminNumber, msg); err != nil {
        log.Printf("notify: admin sms failed booking=%d: %v", b.ID, err)
    }
    // Recorded even on failure so one broken send cannot page the admin
    // again on every later payment trigger.
    if err := c.SendLog.MarkAdminSMSSent(ctx, b.ID, c.now()); err != nil {
        log.Printf("notify: mark admin sms failed booking=%d: %v", b.ID, err)
    }
}

// sendCustomerSMS confirms the booking to the customer.  The phone number
// is kept on the row until a send succeeds, so the next payment trigger
// retries a failed send.
func (c *Coordinator) sendCustomerSMS(ctx context.Context, b *model.Booking) {
    if b.SMSCustomerSentAt != nil || b.CustomerPhone == nil || c.SMS == nil {
        return
    }
    target, ok := NormalizeSwedishMobile(*b.CustomerPhone)
    if !ok {
        log.Printf("notify: customer phone invalid booking=%d", b.ID)
        return
    }
    msg := fmt.Sprintf("Din bokning %s hos %s är bekräftad. %s, %s. Pris: %d kr.",
        b.Reference, CompanyName, trailerLabel(b.TrailerType), periodLabel(b), b.Price)
    if err := c.SMS.SendSMS(ctx, target, msg); err != nil {
        log.Printf("notify: customer sms failed booking=%d: %v", b.ID, err)
        return
    }
    if err := c.SendLog.MarkCustomerSMSSent(ctx, b.ID, c.now()); err != nil {
        log.Printf("notify: mark customer sms failed booking=%d: %v", b.ID, err)
    }
}

// sendReceiptWebhook delivers the receipt payload at most once.  The claim
// column keeps concurrent triggers out while one delivery is in flight; a
// failed delivery releases the claim so the next trigger can retry.
func (c *Coordinator) sendReceiptWebhook(ctx context.Context, b *model.Booking) {
    if c.Webhook == nil || !c.Webhook.Configured() {
        return
    }
    if !b.ReceiptRequested || b.CustomerEmail == nil || b.ReceiptWebhookSentAt != nil {
        return
    }
    if model.IsTestReference(b.Reference) {
        return
    }
    claimed, err := c.SendLog.ClaimReceiptSend(ctx, b.ID, c.now())
    if err != nil {
        log.Printf("notify: claim receipt send failed booking=%d: %v", b.ID, err)
        return
    }
    if !claimed {
        return
    }
    payload := ReceiptPayload{
        Event:            "booking.confirmed",
        BookingReference: b.Reference,
        TrailerType:      string(b.TrailerType),
        RentalType:       string(b.RentalType),
        StartDatetime:    b.StartAt.Format("2006-01-02T15:04"),
        EndDatetime:      b.EndAt.Format("2006-01-02T15:04"),
        Price:            b.Price,
        Status:           string(b.Status),
        ReceiptRequested: true,
        CustomerEmail:    *b.CustomerEmail,
    }
    if b.SwishStatus != nil {
        payload.SwishStatus = *b.SwishStatus
    }
    if err := c.Webhook.Send(ctx, payload); err != nil {
        log.Printf("notify: receipt webhook failed booking=%d: %v", b.ID, err)
        if _, err := c.SendLog.ReleaseReceiptSend(ctx, b.ID); err != nil {
            log.Printf("notify: release receipt claim failed booking=%d: %v", b.ID, err)
        }
        return
    }
    if err := c.SendLog.MarkReceiptSent(ctx, b.ID, c.now()); err != nil {
        log.Printf("notify: mark receipt sent failed booking=%d: %v", b.ID, err)
    }
}

func trailerLabel(t model.TrailerType) string {
    if t == model.TrailerKap {
        return "Kåpvagn"
    }
    return "Gallervagn"
}

func periodLabel(b *model.Booking) string {
    if b.RentalType == model.RentalFullDay {
        return "heldag " + b.StartAt.Format("2006-01-02")
    }
    return fmt.Sprintf("%s %s-%s",
        b.StartAt.Format("2006-01-02"), b.StartAt.Format("15:04"), b.EndAt.Format("15:04"))
}
