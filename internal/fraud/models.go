// Package fraud defines the domain model for the fraud-operations console
// and the persistence boundary the services run against.
package fraud

import "time"

// CardStatus tracks the operational state of a card.
type CardStatus string

const (
	CardActive    CardStatus = "ACTIVE"
	CardFrozen    CardStatus = "FROZEN"
	CardCancelled CardStatus = "CANCELLED"
)

// TransactionStatus tracks a transaction through authorization review.
type TransactionStatus string

const (
	TxnPending  TransactionStatus = "PENDING"
	TxnApproved TransactionStatus = "APPROVED"
	TxnDeclined TransactionStatus = "DECLINED"
	TxnFlagged  TransactionStatus = "FLAGGED"
)

// ChargebackStatus advances monotonically forward; there is no revert path.
type ChargebackStatus string

const (
	ChargebackOpen          ChargebackStatus = "OPEN"
	ChargebackInvestigating ChargebackStatus = "INVESTIGATING"
	ChargebackResolved      ChargebackStatus = "RESOLVED"
	ChargebackRejected      ChargebackStatus = "REJECTED"
)

// AlertStatus tracks where an alert is in analyst triage.
type AlertStatus string

const (
	// AlertPending means created, waiting for an analyst
	AlertPending AlertStatus = "PENDING"

	// AlertInReview means an analyst has picked it up
	AlertInReview AlertStatus = "IN_REVIEW"

	// AlertResolved means confirmed and actioned
	AlertResolved AlertStatus = "RESOLVED"

	// AlertFalsePositive means dismissed as benign
	AlertFalsePositive AlertStatus = "FALSE_POSITIVE"

	// AlertEscalated means handed off to a senior analyst
	AlertEscalated AlertStatus = "ESCALATED"
)

// AlertSeverity is derived from the risk score at alert creation.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// AlertType classifies what the alert is about.
type AlertType string

const (
	AlertTypeFraud            AlertType = "FRAUD"
	AlertTypeVelocity         AlertType = "VELOCITY"
	AlertTypeDeviceChange     AlertType = "DEVICE_CHANGE"
	AlertTypeUnusualLocation  AlertType = "UNUSUAL_LOCATION"
	AlertTypeHighRiskMerchant AlertType = "HIGH_RISK_MERCHANT"
)

// RiskFlags are per-customer risk markers set at onboarding and mutated by
// analyst risk-level updates.
type RiskFlags struct {
	PreviousFraud   bool   `json:"previousFraud"`
	HighRiskCountry bool   `json:"highRiskCountry"`
	VIPCustomer     bool   `json:"vipCustomer"`
	Level           string `json:"level,omitempty"`
}

// Customer is the root entity; it owns cards, devices, transactions,
// chargebacks, and alerts.
type Customer struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	EmailMasked string    `json:"email_masked"`
	RiskFlags   RiskFlags `json:"risk_flags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Card belongs to a customer. Status changes only through freeze/unfreeze
// actions.
type Card struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id"`
	Last4      string     `json:"last4"`
	Network    string     `json:"network"`
	Status     CardStatus `json:"status"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Device is read-only from the core's perspective; used for device-risk
// aggregation.
type Device struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	Fingerprint string    `json:"fingerprint"`
	Trusted     bool      `json:"trusted"`
	LastSeen    time.Time `json:"last_seen"`
}

// Geo is the coarse location attached to a transaction.
type Geo struct {
	Country string `json:"country"`
	City    string `json:"city,omitempty"`
}

// Transaction is immutable once created except for status and riskScore
// backfill.
type Transaction struct {
	ID         string            `json:"id"`
	CustomerID string            `json:"customer_id"`
	CardID     string            `json:"card_id,omitempty"`
	MCC        string            `json:"mcc"`
	Merchant   string            `json:"merchant"`
	Amount     float64           `json:"amount"`
	Currency   string            `json:"currency"`
	Timestamp  time.Time         `json:"timestamp"`
	DeviceID   string            `json:"device_id,omitempty"`
	Geo        Geo               `json:"geo"`
	RiskScore  *float64          `json:"risk_score,omitempty"`
	Status     TransactionStatus `json:"status"`
}

// Chargeback is a customer dispute against a transaction.
type Chargeback struct {
	ID            string           `json:"id"`
	CustomerID    string           `json:"customer_id"`
	TransactionID string           `json:"transaction_id"`
	Amount        float64          `json:"amount"`
	Reason        string           `json:"reason"`
	Status        ChargebackStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Alert is the analyst-facing triage unit.
//
// Invariant: ResolvedAt is non-zero iff Status is RESOLVED or FALSE_POSITIVE.
type Alert struct {
	ID         string         `json:"id"`
	CustomerID string         `json:"customer_id"`
	Type       AlertType      `json:"type"`
	Severity   AlertSeverity  `json:"severity"`
	RiskScore  float64        `json:"risk_score"`
	Reasons    []string       `json:"reasons"`
	Status     AlertStatus    `json:"status"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	TriageData map[string]any `json:"triage_data,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	ResolvedAt time.Time      `json:"resolved_at,omitempty"`
}

// AgentTrace is an append-only audit record of one orchestration step.
type AgentTrace struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	AgentName string    `json:"agent_name"`
	Action    string    `json:"action"`
	Input     any       `json:"input,omitempty"`
	Output    any       `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	Duration  float64   `json:"duration_seconds"`
	CreatedAt time.Time `json:"created_at"`
}

// KBEntry is a read-mostly knowledge-base article consulted for guidance
// text during triage.
type KBEntry struct {
	ID      string   `json:"id"`
	Anchor  string   `json:"anchor"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Chunks  []string `json:"chunks"`
	Tags    []string `json:"tags"`
}
