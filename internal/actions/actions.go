// Package actions executes analyst-initiated operations: card freeze
// and unfreeze behind an OTP gate, dispute creation, customer contact.
package actions

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/fraudops/internal/fraud"
)

// StatusPendingOTP is returned when a card action needs an OTP that was
// not supplied. The stored card status does not change.
const StatusPendingOTP = "PENDING_OTP"

// Store is the slice of the data layer actions need.
type Store interface {
	GetCustomer(ctx context.Context, id string) (*fraud.Customer, bool, error)
	GetCard(ctx context.Context, id string) (*fraud.Card, bool, error)
	UpdateCardStatus(ctx context.Context, id string, status fraud.CardStatus) (*fraud.Card, error)
	GetTransaction(ctx context.Context, id string) (*fraud.Transaction, bool, error)
	CreateChargeback(ctx context.Context, cb *fraud.Chargeback) error
}

// CardActionResult is the outcome of a freeze or unfreeze request.
type CardActionResult struct {
	Success   bool      `json:"success"`
	Action    string    `json:"action"`
	CardID    string    `json:"cardId"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DisputeRequest opens a chargeback against a transaction.
type DisputeRequest struct {
	TransactionID string `json:"txnId"`
	Reason        string `json:"reason,omitempty"`
	Confirm       bool   `json:"confirm"`
}

// DisputeResult is the outcome of a dispute request.
type DisputeResult struct {
	Success   bool      `json:"success"`
	Action    string    `json:"action"`
	DisputeID string    `json:"disputeId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ContactRequest initiates customer outreach.
type ContactRequest struct {
	CustomerID string `json:"customerId"`
	Method     string `json:"method,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ContactResult is the outcome of a contact request.
type ContactResult struct {
	Success    bool      `json:"success"`
	Action     string    `json:"action"`
	CustomerID string    `json:"customerId"`
	Method     string    `json:"method"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Service executes actions against the store.
type Service struct {
	store  Store
	logger log.Logger
	otp    string
	now    func() time.Time
}

// NewService wires an actions service. otp is the accepted verification
// code; production configurations are expected to plug a real verifier
// in front and pass the verified code through.
func NewService(store Store, logger log.Logger, otp string) *Service {
	return &Service{
		store:  store,
		logger: logger.With("component", "actions"),
		otp:    otp,
		now:    time.Now,
	}
}

// FreezeCard moves a card to FROZEN. Without an OTP the request parks
// at PENDING_OTP and storage is untouched. A wrong OTP is a validation
// error, also leaving storage untouched.
func (s *Service) FreezeCard(ctx context.Context, cardID, otp string) (CardActionResult, error) {
	return s.setCardStatus(ctx, cardID, otp, fraud.CardFrozen, "CARD_FROZEN", "Card has been frozen successfully")
}

// UnfreezeCard moves a card back to ACTIVE. Unfreezing always requires
// an OTP regardless of customer flags.
func (s *Service) UnfreezeCard(ctx context.Context, cardID, otp string) (CardActionResult, error) {
	return s.setCardStatus(ctx, cardID, otp, fraud.CardActive, "CARD_UNFROZEN", "Card has been unfrozen successfully")
}

func (s *Service) setCardStatus(ctx context.Context, cardID, otp string, status fraud.CardStatus, action, message string) (CardActionResult, error) {
	card, ok, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return CardActionResult{}, err
	}
	if !ok {
		return CardActionResult{}, fraud.NotFoundf("card", cardID)
	}

	if otp == "" {
		return CardActionResult{
			Success:   false,
			Action:    action,
			CardID:    cardID,
			Status:    StatusPendingOTP,
			Message:   "OTP verification required",
			Timestamp: s.now().UTC(),
		}, nil
	}
	if otp != s.otp {
		return CardActionResult{}, fraud.Validationf("otp", "incorrect OTP")
	}

	if _, err := s.store.UpdateCardStatus(ctx, cardID, status); err != nil {
		return CardActionResult{}, err
	}
	s.logger.Info(ctx, "card status updated", "card_id", cardID, "status", string(status), "previous", string(card.Status))

	return CardActionResult{
		Success:   true,
		Action:    action,
		CardID:    cardID,
		Status:    string(status),
		Message:   message,
		Timestamp: s.now().UTC(),
	}, nil
}

// OpenDispute creates a chargeback for a transaction. The confirm flag
// must be set; the amount is copied from the transaction.
func (s *Service) OpenDispute(ctx context.Context, req DisputeRequest) (DisputeResult, error) {
	if !req.Confirm {
		return DisputeResult{}, fraud.Validationf("confirm", "confirmation required to open a dispute")
	}

	txn, ok, err := s.store.GetTransaction(ctx, req.TransactionID)
	if err != nil {
		return DisputeResult{}, err
	}
	if !ok {
		return DisputeResult{}, fraud.NotFoundf("transaction", req.TransactionID)
	}

	reason := req.Reason
	if reason == "" {
		reason = "Fraudulent transaction"
	}

	cb := &fraud.Chargeback{
		ID:            ulid.Make().String(),
		CustomerID:    txn.CustomerID,
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		Reason:        reason,
		Status:        fraud.ChargebackOpen,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.CreateChargeback(ctx, cb); err != nil {
		return DisputeResult{}, err
	}
	s.logger.Info(ctx, "dispute opened", "dispute_id", cb.ID, "transaction_id", txn.ID)

	return DisputeResult{
		Success:   true,
		Action:    "DISPUTE_OPENED",
		DisputeID: cb.ID,
		Status:    string(cb.Status),
		Timestamp: s.now().UTC(),
	}, nil
}

// ContactCustomer records outreach intent. Delivery itself rides on the
// notification pipeline.
func (s *Service) ContactCustomer(ctx context.Context, req ContactRequest) (ContactResult, error) {
	if req.CustomerID == "" {
		return ContactResult{}, fraud.Validationf("customerId", "customer id required")
	}
	_, ok, err := s.store.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return ContactResult{}, err
	}
	if !ok {
		return ContactResult{}, fraud.NotFoundf("customer", req.CustomerID)
	}

	method := req.Method
	if method == "" {
		method = "EMAIL"
	}
	s.logger.Info(ctx, "customer contact initiated", "customer_id", req.CustomerID, "method", method)

	return ContactResult{
		Success:    true,
		Action:     "CUSTOMER_CONTACT_INITIATED",
		CustomerID: req.CustomerID,
		Method:     method,
		Message:    req.Message,
		Timestamp:  s.now().UTC(),
	}, nil
}
