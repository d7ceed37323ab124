package queue

import (
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer drains the booking.confirmed queue and appends one line per
// confirmed booking to a local log file.  The office machine tails this
// file, so the format stays single-line and greppable.
type Consumer struct {
    URL     string
    LogPath string
}

// NewConsumer returns a Consumer writing to logs/booking.log under the
// working directory.
func NewConsumer(url string) *Consumer {
    return &Consumer{URL: url, LogPath: filepath.Join("logs", "booking.log")}
}

// Run consumes messages until the process exits, reconnecting with capped
// exponential backoff when the broker drops.  Malformed messages are
// rejected without requeue so one bad payload cannot wedge the queue.
func (c *Consumer) Run() {
    backoff := time.Second
    for {
        err := c.consume()
        log.Printf("booking-consumer: %v; reconnecting in %s", err, backoff)
        time.Sleep(backoff)
        if backoff < 30*time.Second {
            backoff *= 2
        }
    }
}

func (c *Consumer) consume() error {
    conn, err := amqp.Dial(c.URL)
    if err != nil {
        return fmt.Errorf("dial broker: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("open channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(confirmedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("declare %s: %w", confirmedQueue, err)
    }
    if err := ch.Qos(50, 0, false); err != nil {
        return fmt.Errorf("set qos: %w", err)
    }
    deliveries, err := ch.Consume(confirmedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("consume %s: %w", confirmedQueue, err)
    }

    for d := range deliveries {
        var ev BookingConfirmedEvent
        if err := json.Unmarshal(d.Body, &ev); err != nil {
            log.Printf("booking-consumer: bad payload: %v", err)
            _ = d.Nack(false, false)
            continue
        }
        if err := c.append(ev); err != nil {
            log.Printf("booking-consumer: write %s: %v", c.LogPath, err)
            _ = d.Nack(false, true)
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("delivery channel closed")
}

func (c *Consumer) append(ev BookingConfirmedEvent) error {
    if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
        return err
    }
    f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return err
    }
    defer f.Close()

    _, err = fmt.Fprintf(f, "[%s] Booking confirmed | booking_id=%d | reference=%s | trailer=%s | rental=%s | %s..%s | price=%d kr | swish=%s\n",
        ev.ConfirmedAt, ev.BookingID, ev.BookingReference, ev.TrailerType, ev.RentalType, ev.StartsAt, ev.EndsAt, ev.PriceSEK, ev.SwishStatus)
    return err
}
