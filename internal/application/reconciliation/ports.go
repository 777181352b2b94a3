package reconciliation

import (
	"context"
	"strings"
	"time"
)

// Locker serialises work on one key across goroutines and, when backed by
// Redis, across processes.
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// StatementArchive keeps the original uploaded statement files
type StatementArchive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Clock returns the current time
type Clock func() time.Time

// PaymentDetails is printed on statements so franchisees know where to pay
type PaymentDetails struct {
	PaymentDays     int      `json:"payment_days"`
	BankName        string   `json:"bank_name"`
	SortCode        string   `json:"sort_code"`
	AccountNumber   string   `json:"account_number"`
	BusinessName    string   `json:"business_name"`
	BusinessAddress []string `json:"business_address"`
}

var filenameUnsafe = strings.NewReplacer(
	`\`, "-", "/", "-", ":", "-", "*", "-", "?", "-", `"`, "-", "<", "-", ">", "-", "|", "-",
)

// safeFilename replaces characters that are not allowed in file names
func safeFilename(s string) string {
	return filenameUnsafe.Replace(s)
}
