package notify

import (
    "context"
    "fmt"
    "io"
    "log"
    "net/http"
    "net/url"
    "strings"
    "time"
)

// smsBodyLimit caps the message body the way the Twilio API does.
const smsBodyLimit = 1600

// SMSSender delivers one SMS.  Implementations return an error when the
// message was not accepted by the provider.
type SMSSender interface {
    SendSMS(ctx context.Context, toE164, body string) error
}

// TwilioSender sends SMS through the Twilio Messages API using basic auth.
type TwilioSender struct {
    AccountSID string
    AuthToken  string
    From       string
    // APIBase overrides the Twilio endpoint, for tests.
    APIBase string
    Client  *http.Client
}

// NewTwilioSender returns a sender with an 8 second request timeout.
func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
    return &TwilioSender{
        AccountSID: accountSID,
        AuthToken:  authToken,
        From:       from,
        Client:     &http.Client{Timeout: 8 * time.Second},
    }
}

// Configured reports whether all Twilio credentials are present.
func (s *TwilioSender) Configured() bool {
    return s.AccountSID != "" && s.AuthToken != "" && s.From != ""
}

// SendSMS posts one message.  Numbers without a leading + are normalized as
// Swedish mobiles first.
func (s *TwilioSender) SendSMS(ctx context.Context, toE164, body string) error {
    if !s.Configured() {
        return fmt.Errorf("notify: twilio credentials missing")
    }
    target := toE164
    if !strings.HasPrefix(target, "+") {
        normalized, ok := NormalizeSwedishMobile(target)
        if !ok {
            return fmt.Errorf("notify: invalid sms target %q", toE164)
        }
        target = normalized
    }
    if len(body) > smsBodyLimit {
        body = body[:smsBodyLimit]
    }

    base := s.APIBase
    if base == "" {
        base = "https://api.twilio.com"
    }
    endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", base, s.AccountSID)
    form := url.Values{}
    form.Set("To", target)
    form.Set("From", s.From)
    form.Set("Body", body)

    req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
    if err != nil {
        return err
    }
    req.SetBasicAuth(s.AccountSID, s.AuthToken)
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

    resp, err := s.Client.Do(req)
    if err != nil {
        return err
    }
    defer func() { _ = resp.Body.Close() }()
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
        log.Printf("notify: twilio sms failed status=%d body=%s", resp.StatusCode, snippet)
        return fmt.Errorf("notify: twilio sms status %d", resp.StatusCode)
    }
    return nil
}
