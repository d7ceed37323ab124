// Package notify sends booking notifications: SMS to the admin and the
// customer, and a receipt webhook for customers who asked for one.
package notify

import "strings"

// NormalizeSwedishMobile converts a Swedish mobile number in any common
// written form to E.164 (+467XXXXXXXX).  The second return value is false
// when the input is not a valid Swedish mobile number.
func NormalizeSwedishMobile(raw string) (string, bool) {
    value := strings.TrimSpace(raw)
    if value == "" {
        return "", false
    }
    var b strings.Builder
    for _, ch := range value {
        if ch == '+' || (ch >= '0' && ch <= '9') {
            b.WriteRune(ch)
        }
    }
    compact := b.String()
    if strings.HasPrefix(compact, "0046") {
        compact = "+46" + compact[4:]
    }
    if strings.HasPrefix(compact, "+46") {
        national := strings.TrimPrefix(compact[3:], "0")
        if len(national) != 9 || !strings.HasPrefix(national, "7") || !allDigits(national) {
            return "", false
        }
        return "+46" + national, true
    }
    if strings.HasPrefix(compact, "07") && len(compact) == 10 && allDigits(compact) {
        return "+46" + compact[1:], true
    }
    return "", false
}

func allDigits(s string) bool {
    for _, ch := range s {
        if ch < '0' || ch > '9' {
            return false
        }
    }
    return true
}
