package notify

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "time"
)

const (
    // CompanyName and OrganizationNumber identify the rental company in
    // receipt webhook payloads.
    CompanyName        = "Dalsjöfors Hyrservice AB"
    OrganizationNumber = "559062-4556"

    webhookAttemptTimeout = 10 * time.Second
)

// webhookBackoff is the pause before the second and third delivery attempt.
var webhookBackoff = []time.Duration{500 * time.Millisecond, time.Second}

// ReceiptPayload is the JSON body posted to the receipt webhook.
type ReceiptPayload struct {
    Event              string `json:"event"`
    Secret             string `json:"secret,omitempty"`
    CompanyName        string `json:"companyName"`
    OrganizationNumber string `json:"organizationNumber"`
    BookingReference   string `json:"bookingReference"`
    TrailerType        string `json:"trailerType"`
    RentalType         string `json:"rentalType"`
    StartDatetime      string `json:"startDatetime"`
    EndDatetime        string `json:"endDatetime"`
    Price              int    `json:"price"`
    Status             string `json:"status"`
    ReceiptRequested   bool   `json:"receiptRequested"`
    CustomerEmail      string `json:"customerEmail"`
    SwishStatus        string `json:"swishStatus"`
}

// WebhookSender posts receipt payloads to a configured endpoint.  Delivery
// is attempted up to three times; transport errors and 5xx responses are
// retried, any response below 400 counts as delivered and redirects are not
// followed.
type WebhookSender struct {
    URL    string
    Secret string
    Client *http.Client
    // Sleep is swapped out in tests.
    Sleep func(d time.Duration)
}

// NewWebhookSender returns a sender for the endpoint.  An empty url
// disables delivery.
func NewWebhookSender(url, secret string) *WebhookSender {
    return &WebhookSender{
        URL:    url,
        Secret: secret,
        Client: &http.Client{
            Timeout: webhookAttemptTimeout,
            CheckRedirect: func(req *http.Request, via []*http.Request) error {
                return http.ErrUseLastResponse
            },
        },
        Sleep: time.Sleep,
    }
}

// Configured reports whether a webhook endpoint is set.
func (w *WebhookSender) Configured() bool { return w.URL != "" }

// Send delivers one payload.  Returns nil once any attempt gets a response
// below 400; a 4xx response is treated as permanent and fails immediately.
func (w *WebhookSender) Send(ctx context.Context, payload ReceiptPayload) error {
    if !w.Configured() {
        log.Printf("notify: WEBHOOK_DISABLED no endpoint configured")
        return fmt.Errorf("notify: webhook url not configured")
    }
    payload.CompanyName = CompanyName
    payload.OrganizationNumber = OrganizationNumber
    if w.Secret != "" {
        payload.Secret = w.Secret
    }
    body, err := json.Marshal(payload)
    if err != nil {
        return err
    }

    var lastErr error
    for attempt := 0; attempt < len(webhookBackoff)+1; attempt++ {
        if attempt > 0 {
            w.Sleep(webhookBackoff[attempt-1])
        }
        status, err := w.post(ctx, body)
        if err != nil {
            lastErr = err
            continue
        }
        if status < 400 {
            return nil
        }
        if status < 500 {
            return fmt.Errorf("notify: webhook rejected with status %d", status)
        }
        lastErr = fmt.Errorf("notify: webhook status %d", status)
    }
    return lastErr
}

func (w *WebhookSender) post(ctx context.Context, body []byte) (int, error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
    if err != nil {
        return 0, err
    }
    req.Header.Set("Content-Type", "application/json")
    resp, err := w.Client.Do(req)
    if err != nil {
        return 0, err
    }
    defer func() { _ = resp.Body.Close() }()
    return resp.StatusCode, nil
}
