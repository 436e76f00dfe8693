package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/fraudops/internal/fraud"
	"github.com/linnemanlabs/fraudops/internal/fraud/memstore"
)

const testOTP = "123456"

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	ctx := context.Background()

	customer := &fraud.Customer{ID: "c1", Name: "Jordan Blake", EmailMasked: "j***n@example.com"}
	if err := store.CreateCustomer(ctx, customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	card := &fraud.Card{ID: "card1", CustomerID: "c1", Last4: "4242", Network: "VISA", Status: fraud.CardActive}
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatalf("seed card: %v", err)
	}
	txn := &fraud.Transaction{
		ID: "t1", CustomerID: "c1", CardID: "card1",
		Merchant: "Electronics Hub", Amount: 450.00, Currency: "USD",
		Status: fraud.TxnFlagged, Timestamp: time.Now().UTC(),
	}
	if err := store.CreateTransaction(ctx, txn); err != nil {
		t.Fatalf("seed txn: %v", err)
	}
	return NewService(store, log.Nop(), testOTP), store
}

func cardStatus(t *testing.T, store *memstore.Store, id string) fraud.CardStatus {
	t.Helper()
	card, ok, err := store.GetCard(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("get card: ok=%v err=%v", ok, err)
	}
	return card.Status
}

func TestFreezeCard_WithoutOTPParks(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	got, err := svc.FreezeCard(context.Background(), "card1", "")
	if err != nil {
		t.Fatalf("FreezeCard: %v", err)
	}
	if got.Success {
		t.Error("success = true without OTP")
	}
	if got.Status != StatusPendingOTP {
		t.Errorf("status = %q, want %q", got.Status, StatusPendingOTP)
	}
	if cardStatus(t, store, "card1") != fraud.CardActive {
		t.Error("card status changed without OTP")
	}
}

func TestFreezeCard_WithOTP(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	got, err := svc.FreezeCard(context.Background(), "card1", testOTP)
	if err != nil {
		t.Fatalf("FreezeCard: %v", err)
	}
	if !got.Success {
		t.Fatal("success = false")
	}
	if got.Action != "CARD_FROZEN" {
		t.Errorf("action = %q", got.Action)
	}
	if got.Message != "Card has been frozen successfully" {
		t.Errorf("message = %q", got.Message)
	}
	if cardStatus(t, store, "card1") != fraud.CardFrozen {
		t.Error("card not frozen in storage")
	}
}

func TestFreezeCard_WrongOTP(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	_, err := svc.FreezeCard(context.Background(), "card1", "000000")
	if !fraud.IsValidation(err) {
		t.Fatalf("error = %v, want validation", err)
	}
	if cardStatus(t, store, "card1") != fraud.CardActive {
		t.Error("card status changed on wrong OTP")
	}
}

func TestFreezeCard_MissingCard(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	_, err := svc.FreezeCard(context.Background(), "missing", testOTP)
	if !errors.Is(err, fraud.ErrNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestUnfreezeCard(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	ctx := context.Background()
	if _, err := svc.FreezeCard(ctx, "card1", testOTP); err != nil {
		t.Fatalf("FreezeCard: %v", err)
	}

	// Unfreeze always needs an OTP.
	got, err := svc.UnfreezeCard(ctx, "card1", "")
	if err != nil {
		t.Fatalf("UnfreezeCard: %v", err)
	}
	if got.Status != StatusPendingOTP {
		t.Errorf("status = %q, want %q", got.Status, StatusPendingOTP)
	}
	if cardStatus(t, store, "card1") != fraud.CardFrozen {
		t.Error("card unfrozen without OTP")
	}

	got, err = svc.UnfreezeCard(ctx, "card1", testOTP)
	if err != nil {
		t.Fatalf("UnfreezeCard: %v", err)
	}
	if !got.Success || got.Action != "CARD_UNFROZEN" {
		t.Errorf("result = %+v", got)
	}
	if cardStatus(t, store, "card1") != fraud.CardActive {
		t.Error("card not active in storage")
	}
}

func TestOpenDispute(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	ctx := context.Background()

	got, err := svc.OpenDispute(ctx, DisputeRequest{TransactionID: "t1", Confirm: true})
	if err != nil {
		t.Fatalf("OpenDispute: %v", err)
	}
	if !got.Success || got.Action != "DISPUTE_OPENED" {
		t.Errorf("result = %+v", got)
	}
	if got.Status != "OPEN" {
		t.Errorf("status = %q, want OPEN", got.Status)
	}

	cb, ok, err := store.GetChargeback(ctx, got.DisputeID)
	if err != nil || !ok {
		t.Fatalf("get chargeback: ok=%v err=%v", ok, err)
	}
	if cb.Amount != 450.00 {
		t.Errorf("amount = %v, want copied from transaction", cb.Amount)
	}
	if cb.Reason != "Fraudulent transaction" {
		t.Errorf("reason = %q, want the default", cb.Reason)
	}
	if cb.CustomerID != "c1" {
		t.Errorf("customerId = %q", cb.CustomerID)
	}
}

func TestOpenDispute_CustomReason(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	got, err := svc.OpenDispute(context.Background(), DisputeRequest{
		TransactionID: "t1", Reason: "Item not received", Confirm: true,
	})
	if err != nil {
		t.Fatalf("OpenDispute: %v", err)
	}
	cb, _, _ := store.GetChargeback(context.Background(), got.DisputeID)
	if cb.Reason != "Item not received" {
		t.Errorf("reason = %q", cb.Reason)
	}
}

func TestOpenDispute_RequiresConfirmation(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	_, err := svc.OpenDispute(context.Background(), DisputeRequest{TransactionID: "t1"})
	if !fraud.IsValidation(err) {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestOpenDispute_MissingTransaction(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	_, err := svc.OpenDispute(context.Background(), DisputeRequest{TransactionID: "missing", Confirm: true})
	if !errors.Is(err, fraud.ErrNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestContactCustomer(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	got, err := svc.ContactCustomer(context.Background(), ContactRequest{
		CustomerID: "c1", Message: "Please call us about recent activity.",
	})
	if err != nil {
		t.Fatalf("ContactCustomer: %v", err)
	}
	if !got.Success || got.Action != "CUSTOMER_CONTACT_INITIATED" {
		t.Errorf("result = %+v", got)
	}
	if got.Method != "EMAIL" {
		t.Errorf("method = %q, want default EMAIL", got.Method)
	}

	got, err = svc.ContactCustomer(context.Background(), ContactRequest{CustomerID: "c1", Method: "SMS"})
	if err != nil {
		t.Fatalf("ContactCustomer: %v", err)
	}
	if got.Method != "SMS" {
		t.Errorf("method = %q", got.Method)
	}
}

func TestContactCustomer_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	if _, err := svc.ContactCustomer(context.Background(), ContactRequest{}); !fraud.IsValidation(err) {
		t.Errorf("error = %v, want validation", err)
	}
	if _, err := svc.ContactCustomer(context.Background(), ContactRequest{CustomerID: "missing"}); !errors.Is(err, fraud.ErrNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}
