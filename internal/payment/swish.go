// Package payment wraps the Swish payment request flow.  Until merchant
// certificates are in place the client runs in mock mode, generating real
// looking tokens so the rest of the booking flow works end to end.
package payment

import (
    "fmt"
    "net/url"
    "strings"

    "github.com/google/uuid"
)

// SwishConfig carries the merchant settings for the Swish Commerce API.
type SwishConfig struct {
    BaseURL       string
    PayeeAlias    string
    CallbackURL   string
    Mock          bool
}

// PaymentRequest is one created Swish payment request.
type PaymentRequest struct {
    InstructionUUID string
    Token           string
    RequestID       string
    AppURL          string
}

// SwishClient creates payment requests and builds QR payloads.
type SwishClient struct {
    cfg SwishConfig
}

// NewSwishClient returns a client for the configured merchant.
func NewSwishClient(cfg SwishConfig) *SwishClient {
    if cfg.PayeeAlias == "" {
        cfg.PayeeAlias = "1234945580"
    }
    return &SwishClient{cfg: cfg}
}

// CreatePaymentRequest starts a payment request for the amount.  In mock
// mode the token and request ID are generated locally.
func (c *SwishClient) CreatePaymentRequest(amountSEK int, message string) (*PaymentRequest, error) {
    if !c.cfg.Mock {
        return nil, fmt.Errorf("payment: live swish api requires merchant certificates")
    }
    instruction := uuid.NewString()
    token := strings.ReplaceAll(uuid.NewString(), "-", "")
    return &PaymentRequest{
        InstructionUUID: instruction,
        Token:           token,
        RequestID:       instruction,
        AppURL:          fmt.Sprintf("swish://paymentrequest?token=%s&callbackurl=%s", token, url.QueryEscape(c.cfg.CallbackURL)),
    }, nil
}

// GetStatus reports the state of a payment request.  Mock requests stay
// PENDING until the callback or the dev endpoint settles them.
func (c *SwishClient) GetStatus(requestID string) (string, error) {
    if !c.cfg.Mock {
        return "", fmt.Errorf("payment: live swish api requires merchant certificates")
    }
    return "PENDING", nil
}

// QRPayload builds the Swish QR string for a payment: payee, amount with a
// decimal comma, url-encoded message and an edit-lock flag.
func (c *SwishClient) QRPayload(amountSEK int, message string) string {
    amount := strings.Replace(fmt.Sprintf("%.2f", float64(amountSEK)), ".", ",", 1)
    return fmt.Sprintf("C%s;%s;%s;0", c.cfg.PayeeAlias, amount, url.QueryEscape(message))
}

// QRURL returns an image URL rendering the payload as a QR code.
func (c *SwishClient) QRURL(payload string) string {
    return "https://quickchart.io/qr?size=320&text=" + url.QueryEscape(payload)
}
