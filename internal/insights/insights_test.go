package insights

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/linnemanlabs/fraudops/internal/fraud"
	"github.com/linnemanlabs/fraudops/internal/fraud/memstore"
)

func seedTxns(t *testing.T, txns []fraud.Transaction) *memstore.Store {
	t.Helper()
	store := memstore.New()
	ctx := context.Background()
	for i := range txns {
		if err := store.CreateTransaction(ctx, &txns[i]); err != nil {
			t.Fatalf("seed txn: %v", err)
		}
	}
	return store
}

func txn(id, customerID, merchant, mcc string, amount float64, ts time.Time) fraud.Transaction {
	return fraud.Transaction{
		ID:         id,
		CustomerID: customerID,
		CardID:     "card1",
		Merchant:   merchant,
		MCC:        mcc,
		Amount:     amount,
		Currency:   "USD",
		Status:     fraud.TxnApproved,
		Timestamp:  ts,
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	store := seedTxns(t, []fraud.Transaction{
		txn("t1", "c1", "Walmart", "5411", 120.50, now.Add(-1*time.Hour)),
		txn("t2", "c1", "Shell", "5541", 45.00, now.Add(-2*time.Hour)),
		txn("t3", "c1", "Walmart", "5411", -30.00, now.Add(-3*time.Hour)),
		txn("t4", "c1", "Unknown Vendor", "9999", 10.00, now.Add(-4*time.Hour)),
		txn("t5", "c2", "Other Customer", "5411", 999.00, now),
	})

	got, err := NewService(store).Build(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if math.Abs(got.TotalSpend-205.50) > 1e-9 {
		t.Errorf("totalSpend = %.2f, want 205.50", got.TotalSpend)
	}
	if math.Abs(got.Categories["Grocery"]-150.50) > 1e-9 {
		t.Errorf("Grocery = %.2f, want 150.50", got.Categories["Grocery"])
	}
	if math.Abs(got.Categories["Gas"]-45.00) > 1e-9 {
		t.Errorf("Gas = %.2f, want 45.00", got.Categories["Gas"])
	}
	if math.Abs(got.Categories["Other"]-10.00) > 1e-9 {
		t.Errorf("Other = %.2f, want 10.00", got.Categories["Other"])
	}
	if len(got.Merchants) != 3 {
		t.Fatalf("merchants = %d, want 3", len(got.Merchants))
	}
	if got.Merchants[0].Merchant != "Walmart" || math.Abs(got.Merchants[0].Amount-150.50) > 1e-9 {
		t.Errorf("top merchant = %+v, want Walmart 150.50", got.Merchants[0])
	}
	if got.Summary != "4 transactions, $205.50 total, $51.38 average" {
		t.Errorf("summary = %q", got.Summary)
	}
}

func TestBuild_RequiresCustomerID(t *testing.T) {
	t.Parallel()

	_, err := NewService(memstore.New()).Build(context.Background(), "")
	if err == nil {
		t.Fatal("expected an error for empty customer id")
	}
	if !fraud.IsValidation(err) {
		t.Errorf("error %v is not a validation error", err)
	}
}

func TestBuild_NoTransactions(t *testing.T) {
	t.Parallel()

	got, err := NewService(memstore.New()).Build(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got.TotalSpend != 0 {
		t.Errorf("totalSpend = %.2f, want 0", got.TotalSpend)
	}
	if got.Summary != "0 transactions, $0.00 total, $0.00 average" {
		t.Errorf("summary = %q", got.Summary)
	}
	if len(got.Merchants) != 0 {
		t.Errorf("merchants = %d, want 0", len(got.Merchants))
	}
}

func TestBuild_CapsAtHundredTransactions(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	txns := make([]fraud.Transaction, 0, 120)
	for i := range 120 {
		txns = append(txns, txn(
			fmt.Sprintf("t%03d", i), "c1", "Merchant", "5411", 1.00,
			now.Add(-time.Duration(i)*time.Minute),
		))
	}

	got, err := NewService(seedTxns(t, txns)).Build(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if math.Abs(got.TotalSpend-100.00) > 1e-9 {
		t.Errorf("totalSpend = %.2f, want the 100 newest only", got.TotalSpend)
	}
}

func TestTopMerchants_FiveLargestStableOrder(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	var txns []fraud.Transaction
	for i, m := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		txns = append(txns, txn(fmt.Sprintf("t%d", i), "c1", m, "5812", float64(10*(i+1)), now))
	}
	// Tie between two merchants resolves alphabetically.
	txns = append(txns, txn("t7", "c1", "AA", "5812", 60, now))

	got, err := NewService(seedTxns(t, txns)).Build(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got.Merchants) != 5 {
		t.Fatalf("merchants = %d, want 5", len(got.Merchants))
	}
	if got.Merchants[0].Merchant != "G" {
		t.Errorf("first = %q, want G", got.Merchants[0].Merchant)
	}
	if got.Merchants[1].Merchant != "AA" || got.Merchants[2].Merchant != "F" {
		t.Errorf("tie order = %q, %q, want AA before F", got.Merchants[1].Merchant, got.Merchants[2].Merchant)
	}
}

func TestMccCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mcc  string
		want string
	}{
		{"5411", "Grocery"},
		{"5541", "Gas"},
		{"5812", "Restaurant"},
		{"6011", "ATM"},
		{"7995", "Gambling"},
		{"1234", "Other"},
		{"", "Other"},
	}
	for _, tt := range tests {
		if got := mccCategory(tt.mcc); got != tt.want {
			t.Errorf("mccCategory(%q) = %q, want %q", tt.mcc, got, tt.want)
		}
	}
}
