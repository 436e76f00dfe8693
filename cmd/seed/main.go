// Command seed loads a deterministic demo dataset into the fraudops
// database: customers with mixed risk profiles, their cards and devices,
// two days of transactions, a pair of in-flight chargebacks, knowledge
// base articles, and pending alerts derived from the high-risk
// transactions.
//
// Usage:
//
//	go run ./cmd/seed -database-url postgres://...
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/cfg"

	"github.com/linnemanlabs/fraudops/internal/fraud"
	"github.com/linnemanlabs/fraudops/internal/fraud/pgstore"
	"github.com/linnemanlabs/fraudops/internal/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "seed failed:", err)
		os.Exit(1)
	}
}

func run() error {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (required)")
	flag.Parse()
	cfg.FillFromEnv(flag.CommandLine, "FRAUDOPS_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if databaseURL == "" {
		return fmt.Errorf("-database-url is required (the server's in-memory store cannot be seeded from a separate process)")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("postgres pool: %w", err)
	}
	defer pool.Close()

	store, err := pgstore.New(ctx, pool)
	if err != nil {
		return fmt.Errorf("pgstore init: %w", err)
	}

	rng := rand.New(rand.NewSource(42)) // deterministic for reproducible demos
	now := time.Now().UTC()

	counts, err := seed(ctx, store, rng, now)
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %d customers, %d cards, %d devices, %d transactions, %d chargebacks, %d KB entries, %d alerts\n",
		counts.customers, counts.cards, counts.devices, counts.transactions, counts.chargebacks, counts.kbEntries, counts.alerts)
	return nil
}

type seedCounts struct {
	customers    int
	cards        int
	devices      int
	transactions int
	chargebacks  int
	kbEntries    int
	alerts       int
}

func seed(ctx context.Context, store fraud.Store, rng *rand.Rand, now time.Time) (seedCounts, error) {
	var counts seedCounts

	for _, c := range demoCustomers() {
		if err := store.CreateCustomer(ctx, c); err != nil {
			return counts, fmt.Errorf("seed customer %s: %w", c.ID, err)
		}
		counts.customers++
	}
	for _, card := range demoCards() {
		if err := store.CreateCard(ctx, card); err != nil {
			return counts, fmt.Errorf("seed card %s: %w", card.ID, err)
		}
		counts.cards++
	}
	for _, d := range demoDevices(now) {
		if err := store.CreateDevice(ctx, d); err != nil {
			return counts, fmt.Errorf("seed device %s: %w", d.ID, err)
		}
		counts.devices++
	}

	txns := demoTransactions(rng, now)
	for _, txn := range txns {
		if err := store.CreateTransaction(ctx, txn); err != nil {
			return counts, fmt.Errorf("seed transaction %s: %w", txn.ID, err)
		}
		counts.transactions++
	}

	for _, cb := range demoChargebacks(now) {
		if err := store.CreateChargeback(ctx, cb); err != nil {
			return counts, fmt.Errorf("seed chargeback %s: %w", cb.ID, err)
		}
		counts.chargebacks++
	}

	for _, e := range demoKBEntries() {
		if err := store.CreateKBEntry(ctx, e); err != nil {
			return counts, fmt.Errorf("seed kb entry %s: %w", e.ID, err)
		}
		counts.kbEntries++
	}

	for _, txn := range txns {
		if txn.RiskScore == nil || *txn.RiskScore < 0.5 {
			continue
		}
		alert := alertForTransaction(txn, now)
		if err := store.CreateAlert(ctx, alert); err != nil {
			return counts, fmt.Errorf("seed alert for %s: %w", txn.ID, err)
		}
		counts.alerts++
	}

	return counts, nil
}

func demoCustomers() []*fraud.Customer {
	return []*fraud.Customer{
		{ID: "cust_maya", Name: "Maya Chen", EmailMasked: "m***a@example.com", RiskFlags: fraud.RiskFlags{VIPCustomer: true}},
		{ID: "cust_devon", Name: "Devon Okafor", EmailMasked: "d***n@example.com"},
		{ID: "cust_priya", Name: "Priya Nair", EmailMasked: "p***a@example.com", RiskFlags: fraud.RiskFlags{PreviousFraud: true}},
		{ID: "cust_lukas", Name: "Lukas Brandt", EmailMasked: "l***s@example.com", RiskFlags: fraud.RiskFlags{HighRiskCountry: true}},
		{ID: "cust_rosa", Name: "Rosa Delgado", EmailMasked: "r***a@example.com"},
	}
}

func demoCards() []*fraud.Card {
	return []*fraud.Card{
		{ID: "card_maya_1", CustomerID: "cust_maya", Last4: "4242", Network: "VISA", Status: fraud.CardActive},
		{ID: "card_devon_1", CustomerID: "cust_devon", Last4: "5454", Network: "MASTERCARD", Status: fraud.CardActive},
		{ID: "card_priya_1", CustomerID: "cust_priya", Last4: "1881", Network: "VISA", Status: fraud.CardActive},
		{ID: "card_priya_2", CustomerID: "cust_priya", Last4: "0005", Network: "AMEX", Status: fraud.CardFrozen},
		{ID: "card_lukas_1", CustomerID: "cust_lukas", Last4: "7001", Network: "VISA", Status: fraud.CardActive},
		{ID: "card_rosa_1", CustomerID: "cust_rosa", Last4: "3339", Network: "MASTERCARD", Status: fraud.CardActive},
	}
}

func demoDevices(now time.Time) []*fraud.Device {
	return []*fraud.Device{
		{ID: "dev_maya_phone", CustomerID: "cust_maya", Fingerprint: "fp-ios-8842", Trusted: true, LastSeen: now.Add(-2 * time.Hour)},
		{ID: "dev_devon_laptop", CustomerID: "cust_devon", Fingerprint: "fp-mac-1201", Trusted: true, LastSeen: now.Add(-26 * time.Hour)},
		{ID: "dev_priya_phone", CustomerID: "cust_priya", Fingerprint: "fp-android-5513", Trusted: true, LastSeen: now.Add(-4 * time.Hour)},
		{ID: "dev_priya_unknown", CustomerID: "cust_priya", Fingerprint: "fp-linux-9928", Trusted: false, LastSeen: now.Add(-30 * time.Minute)},
		{ID: "dev_lukas_tablet", CustomerID: "cust_lukas", Fingerprint: "fp-ipad-3307", Trusted: false, LastSeen: now.Add(-10 * time.Minute)},
		{ID: "dev_rosa_phone", CustomerID: "cust_rosa", Fingerprint: "fp-ios-6110", Trusted: true, LastSeen: now.Add(-8 * time.Hour)},
	}
}

func demoChargebacks(now time.Time) []*fraud.Chargeback {
	return []*fraud.Chargeback{
		{
			ID:            "cb_priya_1",
			CustomerID:    "cust_priya",
			TransactionID: "txn_009",
			Amount:        1299.99,
			Reason:        "Unauthorized transaction",
			Status:        fraud.ChargebackOpen,
			CreatedAt:     now.Add(-36 * time.Hour),
			UpdatedAt:     now.Add(-36 * time.Hour),
		},
		{
			ID:            "cb_lukas_1",
			CustomerID:    "cust_lukas",
			TransactionID: "txn_013",
			Amount:        780.00,
			Reason:        "Services not rendered",
			Status:        fraud.ChargebackInvestigating,
			CreatedAt:     now.Add(-20 * time.Hour),
			UpdatedAt:     now.Add(-6 * time.Hour),
		},
	}
}

func demoKBEntries() []*fraud.KBEntry {
	return []*fraud.KBEntry{
		{
			ID:      "kb_card_freeze",
			Anchor:  "card-freeze",
			Title:   "Card Freeze Procedure",
			Content: "Verify identity with OTP before freezing a card. Freezing blocks new authorizations but does not cancel recurring payments already approved. Unfreezing always requires a fresh OTP.",
			Chunks: []string{
				"Verify identity with OTP before freezing a card.",
				"Freezing blocks new authorizations but does not cancel recurring payments already approved.",
				"Unfreezing always requires a fresh OTP.",
			},
			Tags: []string{"cards", "actions", "otp"},
		},
		{
			ID:      "kb_fraud_detection",
			Anchor:  "fraud-detection",
			Title:   "Fraud Detection Playbook",
			Content: "Review velocity, device trust, and chargeback history before deciding. Scores above 0.8 warrant an immediate block; 0.6 to 0.8 goes to manual review. Always record the reasons that drove the decision.",
			Chunks: []string{
				"Review velocity, device trust, and chargeback history before deciding.",
				"Scores above 0.8 warrant an immediate block; 0.6 to 0.8 goes to manual review.",
				"Always record the reasons that drove the decision.",
			},
			Tags: []string{"triage", "scoring"},
		},
		{
			ID:      "kb_customer_verification",
			Anchor:  "customer-verification",
			Title:   "Customer Verification Steps",
			Content: "Confirm at least two identifiers on file before discussing account activity. Never read full card numbers aloud; use the last four digits only. Escalate to compliance when the customer cannot verify.",
			Chunks: []string{
				"Confirm at least two identifiers on file before discussing account activity.",
				"Never read full card numbers aloud; use the last four digits only.",
				"Escalate to compliance when the customer cannot verify.",
			},
			Tags: []string{"verification", "contact"},
		},
		{
			ID:      "kb_dispute_process",
			Anchor:  "dispute-process",
			Title:   "Dispute Filing Process",
			Content: "A dispute requires explicit customer confirmation before filing. Copy the disputed amount from the transaction record; never accept a caller-stated figure. Open disputes advance to investigating within two business days.",
			Chunks: []string{
				"A dispute requires explicit customer confirmation before filing.",
				"Copy the disputed amount from the transaction record; never accept a caller-stated figure.",
				"Open disputes advance to investigating within two business days.",
			},
			Tags: []string{"disputes", "chargebacks"},
		},
	}
}

type txnSpec struct {
	customerID string
	cardID     string
	deviceID   string
	merchant   string
	mcc        string
	amount     float64
	country    string
	city       string
	status     fraud.TransactionStatus
}

func demoTransactions(rng *rand.Rand, now time.Time) []*fraud.Transaction {
	specs := []txnSpec{
		// Routine domestic activity.
		{"cust_maya", "card_maya_1", "dev_maya_phone", "Blue Bottle Coffee", "5814", 6.75, "US", "Oakland", fraud.TxnApproved},
		{"cust_maya", "card_maya_1", "dev_maya_phone", "Whole Foods Market", "5411", 84.12, "US", "Oakland", fraud.TxnApproved},
		{"cust_maya", "card_maya_1", "dev_maya_phone", "Shell Oil", "5541", 52.30, "US", "Berkeley", fraud.TxnApproved},
		{"cust_devon", "card_devon_1", "dev_devon_laptop", "Steam Games", "5816", 29.99, "US", "Austin", fraud.TxnApproved},
		{"cust_devon", "card_devon_1", "dev_devon_laptop", "HEB Grocery", "5411", 112.40, "US", "Austin", fraud.TxnApproved},
		{"cust_rosa", "card_rosa_1", "dev_rosa_phone", "Target", "5310", 64.08, "US", "Miami", fraud.TxnApproved},
		{"cust_rosa", "card_rosa_1", "dev_rosa_phone", "Publix", "5411", 91.55, "US", "Miami", fraud.TxnApproved},

		// Priya: previous fraud flag plus a burst from an untrusted device.
		{"cust_priya", "card_priya_1", "dev_priya_phone", "Trader Joes", "5411", 47.20, "US", "Seattle", fraud.TxnApproved},
		{"cust_priya", "card_priya_1", "dev_priya_unknown", "Electronics Hub", "5732", 1299.99, "US", "Seattle", fraud.TxnFlagged},
		{"cust_priya", "card_priya_1", "dev_priya_unknown", "QuickCash ATM", "6011", 500.00, "US", "Seattle", fraud.TxnFlagged},
		{"cust_priya", "card_priya_1", "dev_priya_unknown", "QuickCash ATM", "6011", 500.00, "US", "Seattle", fraud.TxnPending},

		// Lukas: high-risk-country pattern with gambling and an offshore spike.
		{"cust_lukas", "card_lukas_1", "dev_lukas_tablet", "LuckySpin Casino", "7995", 250.00, "CY", "Limassol", fraud.TxnFlagged},
		{"cust_lukas", "card_lukas_1", "dev_lukas_tablet", "LuckySpin Casino", "7995", 780.00, "CY", "Limassol", fraud.TxnFlagged},
		{"cust_lukas", "card_lukas_1", "dev_lukas_tablet", "Grand Bazaar Imports", "5999", 2150.00, "TR", "Istanbul", fraud.TxnDeclined},

		// Devon: one high-value outlier against an otherwise quiet history.
		{"cust_devon", "card_devon_1", "dev_devon_laptop", "Apex Audio", "5732", 1899.00, "US", "Austin", fraud.TxnPending},
	}

	txns := make([]*fraud.Transaction, 0, len(specs))
	for i, s := range specs {
		// Spread over the past two days so the velocity window sees them.
		age := time.Duration(rng.Intn(48))*time.Hour + time.Duration(rng.Intn(60))*time.Minute
		score := riskScoreFor(s)
		txns = append(txns, &fraud.Transaction{
			ID:         fmt.Sprintf("txn_%03d", i+1),
			CustomerID: s.customerID,
			CardID:     s.cardID,
			MCC:        s.mcc,
			Merchant:   s.merchant,
			Amount:     s.amount,
			Currency:   "USD",
			Timestamp:  now.Add(-age),
			DeviceID:   s.deviceID,
			Geo:        fraud.Geo{Country: s.country, City: s.city},
			RiskScore:  &score,
			Status:     s.status,
		})
	}
	return txns
}

// riskScoreFor mirrors the scoring heuristics the console applies to
// unscored imports: risky MCCs, large amounts, and non-US geography.
func riskScoreFor(s txnSpec) float64 {
	score := 0.0
	switch s.mcc {
	case "6011":
		score += 0.5
	case "7995":
		score += 0.6
	case "5816":
		score += 0.3
	}
	if s.amount > 1000 {
		score += 0.3
	}
	if s.country != "US" {
		score += 0.2
	}
	if score > 1 {
		score = 1
	}
	return score
}

func alertForTransaction(txn *fraud.Transaction, now time.Time) *fraud.Alert {
	score := *txn.RiskScore
	severity := fraud.SeverityMedium
	switch {
	case score > 0.85:
		severity = fraud.SeverityCritical
	case score > 0.75:
		severity = fraud.SeverityHigh
	}

	reasons := []string{
		"High risk score detected",
		fmt.Sprintf("Transaction amount: %.2f %s", txn.Amount, txn.Currency),
		fmt.Sprintf("Merchant: %s", txn.Merchant),
	}
	switch txn.MCC {
	case "6011":
		reasons = append(reasons, "ATM withdrawal outside normal pattern")
	case "7995":
		reasons = append(reasons, "Gambling transaction detected")
	}
	if score > 0.8 {
		reasons = append(reasons, "Multiple risk factors combined")
	}

	return &fraud.Alert{
		ID:         ulid.Make().String(),
		CustomerID: txn.CustomerID,
		Type:       fraud.AlertTypeFraud,
		Severity:   severity,
		RiskScore:  score,
		Reasons:    reasons,
		Status:     fraud.AlertPending,
		Metadata: map[string]any{
			"transactionId": txn.ID,
			"cardId":        txn.CardID,
			"amount":        txn.Amount,
			"merchant":      txn.Merchant,
			"mcc":           txn.MCC,
			"timestamp":     txn.Timestamp.Format(time.RFC3339),
		},
		CreatedAt: now,
	}
}
