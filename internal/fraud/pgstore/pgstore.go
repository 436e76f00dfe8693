// Package pgstore provides a PostgreSQL implementation of fraud.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/fraudops/internal/fraud"
)

var tracer = otel.Tracer("github.com/linnemanlabs/fraudops/internal/fraud/pgstore")

//go:embed schema.sql
var schema string

// Store persists the fraud domain in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store. The
// pool's lifecycle belongs to the caller.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func spanErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetCustomer retrieves a customer by ID.
func (s *Store) GetCustomer(ctx context.Context, id string) (*fraud.Customer, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetCustomer", "SELECT")
	defer span.End()

	var (
		c         fraud.Customer
		flagsJSON []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email_masked, risk_flags, created_at, updated_at FROM customers WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.EmailMasked, &flagsJSON, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		spanErr(span, err)
		return nil, false, fmt.Errorf("scan customer: %w", err)
	}
	if err := json.Unmarshal(flagsJSON, &c.RiskFlags); err != nil {
		spanErr(span, err)
		return nil, false, fmt.Errorf("unmarshal risk_flags: %w", err)
	}
	return &c, true, nil
}

// UpdateCustomerFlags replaces a customer's risk flags.
func (s *Store) UpdateCustomerFlags(ctx context.Context, id string, flags fraud.RiskFlags) (*fraud.Customer, error) {
	ctx, span := startSpan(ctx, "pgstore.UpdateCustomerFlags", "UPDATE")
	defer span.End()

	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		spanErr(span, err)
		return nil, fmt.Errorf("marshal risk_flags: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE customers SET risk_flags = $2, updated_at = now() WHERE id = $1`,
		id, flagsJSON,
	)
	if err != nil {
		spanErr(span, err)
		return nil, fmt.Errorf("update customer flags: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fraud.NotFoundf("customer", id)
	}

	c, _, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCard retrieves a card by ID.
func (s *Store) GetCard(ctx context.Context, id string) (*fraud.Card, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetCard", "SELECT")
	defer span.End()

	var c fraud.Card
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, customer_id, last4, network, status, updated_at FROM cards WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.CustomerID, &c.Last4, &c.Network, &status, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		spanErr(span, err)
		return nil, false, fmt.Errorf("scan card: %w", err)
	}
	c.Status = fraud.CardStatus(status)
	return &c, true, nil
}

// UpdateCardStatus sets a card's status.
func (s *Store) UpdateCardStatus(ctx context.Context, id string, status fraud.CardStatus) (*fraud.Card, error) {
	ctx, span := startSpan(ctx, "pgstore.UpdateCardStatus", "UPDATE")
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`UPDATE cards SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		spanErr(span, err)
		return nil, fmt.Errorf("update card status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fraud.NotFoundf("card", id)
	}

	c, _, err := s.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListDevices returns all devices for a customer, ordered by ID.
func (s *Store) ListDevices(ctx context.Context, customerID string) ([]*fraud.Device, error) {
	ctx, span := startSpan(ctx, "pgstore.ListDevices", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, customer_id, fingerprint, trusted, last_seen FROM devices WHERE customer_id = $1 ORDER BY id`,
		customerID,
	)
	if err != nil {
		spanErr(span, err)
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	var out []*fraud.Device
	for rows.Next() {
		var d fraud.Device
		if err := rows.Scan(&d.ID, &d.CustomerID, &d.Fingerprint, &d.Trusted, &d.LastSeen); err != nil {
			spanErr(span, err)
			return nil, fmt.Errorf("scan device: %w", err)
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		spanErr(span, err)
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return out, nil
}

const txnColumns = `id, customer_id, card_id, mcc, merchant, amount, currency, ts, device_id, geo_country, geo_city, risk_score, status`

// GetTransaction retrieves a transaction by ID.
func (s *Store) GetTransaction(ctx context.Context, id string) (*fraud.Transaction, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetTransaction", "SELECT")
	defer span.End()

	t, err := scanTxnRow(s.pool.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		spanErr(span, err)
		return nil, false, err
	}
	if t == nil {
		return nil, false, nil
	}
	return t, true, nil
}

// ListTransactions returns a customer's transactions at or after since,
// newest first.
func (s *Store) ListTransactions(ctx context.Context, customerID string, since time.Time) ([]*fraud.Transaction, error) {
	ctx, span := startSpan(ctx, "pgstore.ListTransactions", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE customer_id = $1 AND ts >= $2 ORDER BY ts DESC`,
		customerID, since,
	)
	if err != nil {
		spanErr(span, err)
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []*fraud.Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			spanErr(span, err)
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		spanErr(span, err)
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// GetChargeback retrieves a chargeback by ID.
func (s *Store) GetChargeback(ctx context.Context, id string) (*fraud.Chargeback, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetChargeback", "SELECT")
	defer span.End()

	var cb fraud.Chargeback
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, customer_id, transaction_id, amount, reason, status, created_at, updated_at FROM chargebacks WHERE id = $1`,
		id,
	).Scan(&cb.ID, &cb.CustomerID, &cb.TransactionID, &cb.Amount, &cb.Reason, &status, &cb.CreatedAt, &cb.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		spanErr(span, err)
		return nil, false, fmt.Errorf("scan chargeback: %w", err)
	}
	cb.Status = fraud.ChargebackStatus(status)
	return &cb, true, nil
}

// CountChargebacks counts a customer's chargebacks.
func (s *Store) CountChargebacks(ctx context.Context, customerID string) (int, error) {
	ctx, span := startSpan(ctx, "pgstore.CountChargebacks", "SELECT")
	defer span.End()

	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM chargebacks WHERE customer_id = $1`, customerID,
	).Scan(&n)
	if err != nil {
		spanErr(span, err)
		return 0, fmt.Errorf("count chargebacks: %w", err)
	}
	return n, nil
}

// CreateChargeback inserts a chargeback.
func (s *Store) CreateChargeback(ctx context.Context, cb *fraud.Chargeback) error {
	ctx, span := startSpan(ctx, "pgstore.CreateChargeback", "INSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO chargebacks (id, customer_id, transaction_id, amount, reason, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		cb.ID, cb.CustomerID, cb.TransactionID, cb.Amount, cb.Reason, string(cb.Status), cb.CreatedAt, cb.UpdatedAt,
	)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("insert chargeback: %w", err)
	}
	return nil
}

const alertColumns = `id, customer_id, type, severity, risk_score, reasons, status, metadata, triage_data, created_at, resolved_at`

// GetAlert retrieves an alert by ID.
func (s *Store) GetAlert(ctx context.Context, id string) (*fraud.Alert, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetAlert", "SELECT")
	defer span.End()

	a, err := scanAlertRow(s.pool.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
	if err != nil {
		spanErr(span, err)
		return nil, false, err
	}
	if a == nil {
		return nil, false, nil
	}
	return a, true, nil
}

// ListAlerts returns alerts matching the query, sorted severity desc then
// createdAt desc.
func (s *Store) ListAlerts(ctx context.Context, q fraud.AlertQuery) ([]*fraud.Alert, error) {
	ctx, span := startSpan(ctx, "pgstore.ListAlerts", "SELECT")
	defer span.End()

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.CustomerID != "" {
		query += ` AND customer_id = ` + arg(q.CustomerID)
	}
	if q.Type != "" {
		query += ` AND type = ` + arg(string(q.Type))
	}
	if q.Severity != "" {
		query += ` AND severity = ` + arg(string(q.Severity))
	}
	if q.Status != "" {
		query += ` AND status = ` + arg(string(q.Status))
	}
	if !q.From.IsZero() {
		query += ` AND created_at >= ` + arg(q.From)
	}
	if !q.To.IsZero() {
		query += ` AND created_at <= ` + arg(q.To)
	}
	query += ` ORDER BY CASE severity
		WHEN 'CRITICAL' THEN 3 WHEN 'HIGH' THEN 2 WHEN 'MEDIUM' THEN 1 ELSE 0
	END DESC, created_at DESC`
	if q.Take > 0 {
		query += ` LIMIT ` + arg(q.Take)
	}
	if q.Skip > 0 {
		query += ` OFFSET ` + arg(q.Skip)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		spanErr(span, err)
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []*fraud.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			spanErr(span, err)
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		spanErr(span, err)
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

// CountAlertsExcluding counts a customer's alerts whose status is not exclude.
func (s *Store) CountAlertsExcluding(ctx context.Context, customerID string, exclude fraud.AlertStatus) (int, error) {
	ctx, span := startSpan(ctx, "pgstore.CountAlertsExcluding", "SELECT")
	defer span.End()

	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM alerts WHERE customer_id = $1 AND status <> $2`,
		customerID, string(exclude),
	).Scan(&n)
	if err != nil {
		spanErr(span, err)
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return n, nil
}

// CreateAlert inserts an alert.
func (s *Store) CreateAlert(ctx context.Context, a *fraud.Alert) error {
	ctx, span := startSpan(ctx, "pgstore.CreateAlert", "INSERT")
	defer span.End()

	reasonsJSON, metaJSON, triageJSON, err := marshalAlertJSON(a)
	if err != nil {
		spanErr(span, err)
		return err
	}

	var resolvedAt *time.Time
	if !a.ResolvedAt.IsZero() {
		resolvedAt = &a.ResolvedAt
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO alerts (`+alertColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.CustomerID, string(a.Type), string(a.Severity), a.RiskScore,
		reasonsJSON, string(a.Status), metaJSON, triageJSON, a.CreatedAt, resolvedAt,
	)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// UpdateAlert replaces a stored alert's mutable fields.
func (s *Store) UpdateAlert(ctx context.Context, a *fraud.Alert) error {
	ctx, span := startSpan(ctx, "pgstore.UpdateAlert", "UPDATE")
	defer span.End()

	reasonsJSON, metaJSON, triageJSON, err := marshalAlertJSON(a)
	if err != nil {
		spanErr(span, err)
		return err
	}

	var resolvedAt *time.Time
	if !a.ResolvedAt.IsZero() {
		resolvedAt = &a.ResolvedAt
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET type = $2, severity = $3, risk_score = $4, reasons = $5,
			status = $6, metadata = $7, triage_data = $8, resolved_at = $9
		 WHERE id = $1`,
		a.ID, string(a.Type), string(a.Severity), a.RiskScore, reasonsJSON,
		string(a.Status), metaJSON, triageJSON, resolvedAt,
	)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("update alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fraud.NotFoundf("alert", a.ID)
	}
	return nil
}

// CreateTrace appends an agent trace row.
func (s *Store) CreateTrace(ctx context.Context, t *fraud.AgentTrace) error {
	ctx, span := startSpan(ctx, "pgstore.CreateTrace", "INSERT")
	defer span.End()

	inputJSON, err := json.Marshal(t.Input)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("marshal trace input: %w", err)
	}
	outputJSON, err := json.Marshal(t.Output)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("marshal trace output: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO agent_traces (id, session_id, agent_name, action, input, output, error, duration_s, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.SessionID, t.AgentName, t.Action, inputJSON, outputJSON, t.Error, t.Duration, t.CreatedAt,
	)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("insert trace: %w", err)
	}
	return nil
}

// GetKBEntry retrieves a knowledge-base entry by anchor.
func (s *Store) GetKBEntry(ctx context.Context, anchor string) (*fraud.KBEntry, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetKBEntry", "SELECT")
	defer span.End()

	e, err := scanKBRow(s.pool.QueryRow(ctx,
		`SELECT id, anchor, title, content, chunks, tags FROM kb_entries WHERE anchor = $1`, anchor))
	if err != nil {
		spanErr(span, err)
		return nil, false, err
	}
	if e == nil {
		return nil, false, nil
	}
	return e, true, nil
}

// SearchKB returns entries whose title, content, or tags contain the query.
func (s *Store) SearchKB(ctx context.Context, query string) ([]*fraud.KBEntry, error) {
	ctx, span := startSpan(ctx, "pgstore.SearchKB", "SELECT")
	defer span.End()

	if query == "" {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, anchor, title, content, chunks, tags FROM kb_entries
		 WHERE title ILIKE '%' || $1 || '%'
		    OR content ILIKE '%' || $1 || '%'
		    OR tags::text ILIKE '%' || $1 || '%'
		 ORDER BY anchor`,
		query,
	)
	if err != nil {
		spanErr(span, err)
		return nil, fmt.Errorf("query kb: %w", err)
	}
	defer rows.Close()

	var out []*fraud.KBEntry
	for rows.Next() {
		e, err := scanKB(rows)
		if err != nil {
			spanErr(span, err)
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		spanErr(span, err)
		return nil, fmt.Errorf("iterate kb: %w", err)
	}
	return out, nil
}

// CreateCustomer inserts a customer.
func (s *Store) CreateCustomer(ctx context.Context, c *fraud.Customer) error {
	ctx, span := startSpan(ctx, "pgstore.CreateCustomer", "INSERT")
	defer span.End()

	flagsJSON, err := json.Marshal(c.RiskFlags)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("marshal risk_flags: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO customers (id, name, email_masked, risk_flags, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email_masked = EXCLUDED.email_masked,
			risk_flags = EXCLUDED.risk_flags,
			updated_at = EXCLUDED.updated_at`,
		c.ID, c.Name, c.EmailMasked, flagsJSON, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// CreateCard inserts a card.
func (s *Store) CreateCard(ctx context.Context, c *fraud.Card) error {
	ctx, span := startSpan(ctx, "pgstore.CreateCard", "INSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO cards (id, customer_id, last4, network, status, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		c.ID, c.CustomerID, c.Last4, c.Network, string(c.Status), c.UpdatedAt,
	)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

// CreateDevice inserts a device.
func (s *Store) CreateDevice(ctx context.Context, d *fraud.Device) error {
	ctx, span := startSpan(ctx, "pgstore.CreateDevice", "INSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO devices (id, customer_id, fingerprint, trusted, last_seen)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE SET trusted = EXCLUDED.trusted, last_seen = EXCLUDED.last_seen`,
		d.ID, d.CustomerID, d.Fingerprint, d.Trusted, d.LastSeen,
	)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// CreateTransaction inserts a transaction.
func (s *Store) CreateTransaction(ctx context.Context, t *fraud.Transaction) error {
	ctx, span := startSpan(ctx, "pgstore.CreateTransaction", "INSERT")
	defer span.End()

	var cardID, deviceID *string
	if t.CardID != "" {
		cardID = &t.CardID
	}
	if t.DeviceID != "" {
		deviceID = &t.DeviceID
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO transactions (id, customer_id, card_id, mcc, merchant, amount, currency, ts, device_id, geo_country, geo_city, risk_score, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		 ON CONFLICT (id) DO NOTHING`,
		t.ID, t.CustomerID, cardID, t.MCC, t.Merchant, t.Amount, t.Currency, t.Timestamp,
		deviceID, t.Geo.Country, t.Geo.City, t.RiskScore, string(t.Status),
	)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// CreateKBEntry upserts a knowledge-base entry on its anchor.
func (s *Store) CreateKBEntry(ctx context.Context, e *fraud.KBEntry) error {
	ctx, span := startSpan(ctx, "pgstore.CreateKBEntry", "INSERT")
	defer span.End()

	chunksJSON, err := json.Marshal(e.Chunks)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("marshal chunks: %w", err)
	}
	tagsJSON, err := json.Marshal(e.Tags)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO kb_entries (id, anchor, title, content, chunks, tags)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (anchor) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			chunks = EXCLUDED.chunks,
			tags = EXCLUDED.tags`,
		e.ID, e.Anchor, e.Title, e.Content, chunksJSON, tagsJSON,
	)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("insert kb entry: %w", err)
	}
	return nil
}

func marshalAlertJSON(a *fraud.Alert) (reasons, metadata, triageData []byte, err error) {
	reasons, err = json.Marshal(a.Reasons)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal reasons: %w", err)
	}
	if a.Metadata != nil {
		metadata, err = json.Marshal(a.Metadata)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal metadata: %w", err)
		}
	}
	if a.TriageData != nil {
		triageData, err = json.Marshal(a.TriageData)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal triage_data: %w", err)
		}
	}
	return reasons, metadata, triageData, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTxn(row rowScanner) (*fraud.Transaction, error) {
	var (
		t                fraud.Transaction
		cardID, deviceID *string
		status           string
	)
	err := row.Scan(
		&t.ID, &t.CustomerID, &cardID, &t.MCC, &t.Merchant, &t.Amount, &t.Currency,
		&t.Timestamp, &deviceID, &t.Geo.Country, &t.Geo.City, &t.RiskScore, &status,
	)
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	if cardID != nil {
		t.CardID = *cardID
	}
	if deviceID != nil {
		t.DeviceID = *deviceID
	}
	t.Status = fraud.TransactionStatus(status)
	return &t, nil
}

// scanTxnRow is scanTxn plus the no-rows convention. Returns (nil, nil)
// when no row is found.
func scanTxnRow(row pgx.Row) (*fraud.Transaction, error) {
	t, err := scanTxn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func scanAlert(row rowScanner) (*fraud.Alert, error) {
	var (
		a                                fraud.Alert
		typ, severity, status            string
		reasonsJSON, metaJSON, triageRaw []byte
		resolvedAt                       *time.Time
	)
	err := row.Scan(
		&a.ID, &a.CustomerID, &typ, &severity, &a.RiskScore,
		&reasonsJSON, &status, &metaJSON, &triageRaw, &a.CreatedAt, &resolvedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	a.Type = fraud.AlertType(typ)
	a.Severity = fraud.AlertSeverity(severity)
	a.Status = fraud.AlertStatus(status)
	if resolvedAt != nil {
		a.ResolvedAt = *resolvedAt
	}
	if err := json.Unmarshal(reasonsJSON, &a.Reasons); err != nil {
		return nil, fmt.Errorf("unmarshal reasons: %w", err)
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &a.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if len(triageRaw) > 0 {
		if err := json.Unmarshal(triageRaw, &a.TriageData); err != nil {
			return nil, fmt.Errorf("unmarshal triage_data: %w", err)
		}
	}
	return &a, nil
}

// scanAlertRow is scanAlert plus the no-rows convention. Returns (nil, nil)
// when no row is found.
func scanAlertRow(row pgx.Row) (*fraud.Alert, error) {
	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func scanKB(row rowScanner) (*fraud.KBEntry, error) {
	var (
		e                    fraud.KBEntry
		chunksJSON, tagsJSON []byte
	)
	if err := row.Scan(&e.ID, &e.Anchor, &e.Title, &e.Content, &chunksJSON, &tagsJSON); err != nil {
		return nil, fmt.Errorf("scan kb entry: %w", err)
	}
	if err := json.Unmarshal(chunksJSON, &e.Chunks); err != nil {
		return nil, fmt.Errorf("unmarshal chunks: %w", err)
	}
	if err := json.Unmarshal(tagsJSON, &e.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &e, nil
}

// scanKBRow is scanKB plus the no-rows convention. Returns (nil, nil) when
// no row is found.
func scanKBRow(row pgx.Row) (*fraud.KBEntry, error) {
	e, err := scanKB(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}
