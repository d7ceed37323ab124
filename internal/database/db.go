package database

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    _ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
    auth := user
    if pass != "" {
        auth = fmt.Sprintf("%s:%s", user, pass)
    }
    // parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
    dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
        auth, host, port, name)

    db, err := sql.Open("mysql", dsn)
    if err != nil {
        return nil, err
    }

    // Pool settings
    db.SetMaxOpenConns(25)
    db.SetMaxIdleConns(25)
    db.SetConnMaxLifetime(30 * time.Minute)

    // Ping with timeout
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        return nil, err
    }
    return db, nil
}

// EnsureSchema creates the bookings and trailer_blocks tables when they do
// not exist yet.  Idempotent; existing data is left intact.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
    stmts := []string{
        `CREATE TABLE IF NOT EXISTS bookings (
            id                      BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
            booking_reference       VARCHAR(32) NULL,
            trailer_type            ENUM('GALLER','KAP') NOT NULL,
            rental_type             ENUM('TWO_HOURS','FULL_DAY') NOT NULL,
            start_dt                DATETIME NOT NULL,
            end_dt                  DATETIME NOT NULL,
            price                   INT NOT NULL,
            status                  ENUM('PENDING_PAYMENT','CONFIRMED','CANCELLED') NOT NULL,
            created_at              DATETIME NOT NULL,
            expires_at              DATETIME NULL,
            swish_token             VARCHAR(64) NULL,
            swish_request_id        VARCHAR(64) NULL,
            swish_status            VARCHAR(16) NULL,
            customer_phone_temp     VARCHAR(32) NULL,
            customer_email_temp     VARCHAR(255) NULL,
            receipt_requested       TINYINT(1) NOT NULL DEFAULT 0,
            sms_admin_sent_at       DATETIME NULL,
            sms_customer_sent_at    DATETIME NULL,
            receipt_webhook_sent_at DATETIME NULL,
            receipt_webhook_lock_at DATETIME NULL,
            UNIQUE KEY idx_bookings_reference (booking_reference),
            KEY idx_bookings_type_window (trailer_type, start_dt, end_dt)
        ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
        `CREATE TABLE IF NOT EXISTS trailer_blocks (
            id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
            trailer_type ENUM('GALLER','KAP') NOT NULL,
            start_dt     DATETIME NOT NULL,
            end_dt       DATETIME NOT NULL,
            reason       VARCHAR(255) NOT NULL,
            created_at   DATETIME NOT NULL,
            KEY idx_trailer_blocks_type_window (trailer_type, start_dt, end_dt)
        ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
    }
    for _, s := range stmts {
        if _, err := db.ExecContext(ctx, s); err != nil {
            return err
        }
    }
    return nil
}
