// Package insights aggregates a customer's recent spending into a small
// report an analyst can read at a glance.
package insights

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/linnemanlabs/fraudops/internal/fraud"
)

const maxTransactions = 100

// Store is the slice of the data layer the report builder needs.
type Store interface {
	ListTransactions(ctx context.Context, customerID string, since time.Time) ([]*fraud.Transaction, error)
}

// MerchantSpend is one merchant's share of recent spending.
type MerchantSpend struct {
	Merchant string  `json:"merchant"`
	Amount   float64 `json:"amount"`
}

// Report summarizes a customer's recent transactions.
type Report struct {
	TotalSpend float64            `json:"totalSpend"`
	Categories map[string]float64 `json:"categories"`
	Merchants  []MerchantSpend    `json:"merchants"`
	Summary    string             `json:"summary"`
}

// Service builds spending reports.
type Service struct {
	store Store
}

// NewService wires an insights service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Build aggregates the customer's most recent transactions, newest
// first, capped at 100.
func (s *Service) Build(ctx context.Context, customerID string) (Report, error) {
	if customerID == "" {
		return Report{}, fraud.Validationf("customerId", "customer id required for insights")
	}

	txns, err := s.store.ListTransactions(ctx, customerID, time.Time{})
	if err != nil {
		return Report{}, fmt.Errorf("insights transactions for %s: %w", customerID, err)
	}
	if len(txns) > maxTransactions {
		txns = txns[:maxTransactions]
	}

	return Report{
		TotalSpend: totalSpend(txns),
		Categories: categorize(txns),
		Merchants:  topMerchants(txns),
		Summary:    summarize(txns),
	}, nil
}

func totalSpend(txns []*fraud.Transaction) float64 {
	var sum float64
	for i := range txns {
		sum += math.Abs(txns[i].Amount)
	}
	return sum
}

func categorize(txns []*fraud.Transaction) map[string]float64 {
	categories := make(map[string]float64)
	for i := range txns {
		categories[mccCategory(txns[i].MCC)] += math.Abs(txns[i].Amount)
	}
	return categories
}

// topMerchants returns the five largest merchants by absolute spend,
// ties broken by merchant name for a stable order.
func topMerchants(txns []*fraud.Transaction) []MerchantSpend {
	byMerchant := make(map[string]float64)
	for i := range txns {
		byMerchant[txns[i].Merchant] += math.Abs(txns[i].Amount)
	}

	merchants := make([]MerchantSpend, 0, len(byMerchant))
	for merchant, amount := range byMerchant {
		merchants = append(merchants, MerchantSpend{Merchant: merchant, Amount: amount})
	}
	sort.Slice(merchants, func(i, j int) bool {
		if merchants[i].Amount != merchants[j].Amount {
			return merchants[i].Amount > merchants[j].Amount
		}
		return merchants[i].Merchant < merchants[j].Merchant
	})
	if len(merchants) > 5 {
		merchants = merchants[:5]
	}
	return merchants
}

func summarize(txns []*fraud.Transaction) string {
	count := len(txns)
	total := totalSpend(txns)
	avg := 0.0
	if count > 0 {
		avg = total / float64(count)
	}
	return fmt.Sprintf("%d transactions, $%.2f total, $%.2f average", count, total, avg)
}

var mccCategories = map[string]string{
	"5411": "Grocery",
	"5541": "Gas",
	"5812": "Restaurant",
	"6011": "ATM",
	"7995": "Gambling",
}

func mccCategory(mcc string) string {
	if category, ok := mccCategories[mcc]; ok {
		return category
	}
	return "Other"
}
