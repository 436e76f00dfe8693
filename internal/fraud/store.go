package fraud

import (
	"context"
	"time"
)

// AlertQuery filters ListAlerts. Zero values mean "no filter".
type AlertQuery struct {
	CustomerID string
	Type       AlertType
	Severity   AlertSeverity
	Status     AlertStatus
	From       time.Time
	To         time.Time
	Skip       int
	Take       int
}

// Store is the persistence interface for the console core. Reads for a
// missing entity return (zero, false, nil); errors are reserved for
// infrastructure failures.
type Store interface {
	// Customers
	GetCustomer(ctx context.Context, id string) (*Customer, bool, error)
	UpdateCustomerFlags(ctx context.Context, id string, flags RiskFlags) (*Customer, error)

	// Cards
	GetCard(ctx context.Context, id string) (*Card, bool, error)
	UpdateCardStatus(ctx context.Context, id string, status CardStatus) (*Card, error)

	// Devices
	ListDevices(ctx context.Context, customerID string) ([]*Device, error)

	// Transactions
	GetTransaction(ctx context.Context, id string) (*Transaction, bool, error)
	ListTransactions(ctx context.Context, customerID string, since time.Time) ([]*Transaction, error)

	// Chargebacks
	GetChargeback(ctx context.Context, id string) (*Chargeback, bool, error)
	CountChargebacks(ctx context.Context, customerID string) (int, error)
	CreateChargeback(ctx context.Context, cb *Chargeback) error

	// Alerts
	GetAlert(ctx context.Context, id string) (*Alert, bool, error)
	ListAlerts(ctx context.Context, q AlertQuery) ([]*Alert, error)
	CountAlertsExcluding(ctx context.Context, customerID string, exclude AlertStatus) (int, error)
	CreateAlert(ctx context.Context, a *Alert) error
	UpdateAlert(ctx context.Context, a *Alert) error

	// Agent traces (append-only)
	CreateTrace(ctx context.Context, t *AgentTrace) error

	// Knowledge base
	GetKBEntry(ctx context.Context, anchor string) (*KBEntry, bool, error)
	SearchKB(ctx context.Context, query string) ([]*KBEntry, error)

	// Seeding
	CreateCustomer(ctx context.Context, c *Customer) error
	CreateCard(ctx context.Context, c *Card) error
	CreateDevice(ctx context.Context, d *Device) error
	CreateTransaction(ctx context.Context, t *Transaction) error
	CreateKBEntry(ctx context.Context, e *KBEntry) error
}
