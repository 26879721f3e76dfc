package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
)

// SQLite implements both collaborators on a sqlite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dsn and runs migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// In-memory SQLite gives every connection its own database. Keep a single
	// connection so schema and data survive across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS negotiations (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL,
			persona_id TEXT,
			base_price REAL NOT NULL,
			min_price REAL NOT NULL,
			current_offer REAL NOT NULL,
			rounds INTEGER NOT NULL DEFAULT 0,
			max_rounds INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			concluded_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			negotiation_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			type TEXT NOT NULL,
			offer_amount REAL,
			offer_final INTEGER,
			offer_source TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (negotiation_id) REFERENCES negotiations(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_negotiation ON messages(negotiation_id, created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Create inserts a new negotiation, assigning an id when absent.
func (s *SQLite) Create(ctx context.Context, n *negotiation.Negotiation) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO negotiations (id, product_id, persona_id, base_price, min_price,
			current_offer, rounds, max_rounds, status, created_at, concluded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.ProductID, n.PersonaID, n.BasePrice, n.MinPrice,
		n.CurrentOffer, n.Rounds, n.MaxRounds, string(n.Status), n.CreatedAt, n.ConcludedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrNegotiationExists
		}
		return fmt.Errorf("failed to insert negotiation: %w", err)
	}
	return nil
}

// Load retrieves a negotiation by id.
func (s *SQLite) Load(ctx context.Context, id string) (negotiation.Negotiation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, product_id, persona_id, base_price, min_price, current_offer,
			rounds, max_rounds, status, created_at, concluded_at
		 FROM negotiations WHERE id = ?`, id)

	var n negotiation.Negotiation
	var status string
	var concluded sql.NullTime
	err := row.Scan(&n.ID, &n.ProductID, &n.PersonaID, &n.BasePrice, &n.MinPrice,
		&n.CurrentOffer, &n.Rounds, &n.MaxRounds, &status, &n.CreatedAt, &concluded)
	if err == sql.ErrNoRows {
		return negotiation.Negotiation{}, ErrNegotiationNotFound
	}
	if err != nil {
		return negotiation.Negotiation{}, fmt.Errorf("failed to load negotiation: %w", err)
	}

	n.Status = negotiation.Status(status)
	if concluded.Valid {
		t := concluded.Time
		n.ConcludedAt = &t
	}
	return n, nil
}

// Update writes back a negotiation aggregate.
func (s *SQLite) Update(ctx context.Context, n negotiation.Negotiation) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE negotiations SET current_offer = ?, rounds = ?, status = ?, concluded_at = ?
		 WHERE id = ?`,
		n.CurrentOffer, n.Rounds, string(n.Status), n.ConcludedAt, n.ID)
	if err != nil {
		return fmt.Errorf("failed to update negotiation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if affected == 0 {
		return ErrNegotiationNotFound
	}
	return nil
}

// Append stores one conversation message.
func (s *SQLite) Append(ctx context.Context, m negotiation.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	var amount sql.NullFloat64
	var final sql.NullBool
	var source sql.NullString
	if m.Offer != nil {
		amount = sql.NullFloat64{Float64: m.Offer.Amount, Valid: true}
		final = sql.NullBool{Bool: m.Offer.Final, Valid: true}
		source = sql.NullString{String: string(m.Offer.Source), Valid: m.Offer.Source != ""}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, negotiation_id, sender, content, type,
			offer_amount, offer_final, offer_source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.NegotiationID, string(m.Sender), m.Content, string(m.Type),
		amount, final, source, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// History returns messages ordered by timestamp. With a limit, the most
// recent messages are returned, still in ascending order.
func (s *SQLite) History(ctx context.Context, negotiationID string, opts HistoryOptions) ([]negotiation.Message, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM negotiations WHERE id = ?`, negotiationID).Scan(&one)
	if err == sql.ErrNoRows {
		return nil, ErrNegotiationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check negotiation: %w", err)
	}

	query := `SELECT id, negotiation_id, sender, content, type,
			offer_amount, offer_final, offer_source, created_at
		 FROM messages WHERE negotiation_id = ? ORDER BY created_at ASC`
	args := []any{negotiationID}
	if opts.Limit > 0 {
		query = `SELECT * FROM (
			SELECT id, negotiation_id, sender, content, type,
				offer_amount, offer_final, offer_source, created_at
			FROM messages WHERE negotiation_id = ?
			ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at ASC`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []negotiation.Message
	for rows.Next() {
		var m negotiation.Message
		var sender, msgType string
		var amount sql.NullFloat64
		var final sql.NullBool
		var source sql.NullString
		if err := rows.Scan(&m.ID, &m.NegotiationID, &sender, &m.Content, &msgType,
			&amount, &final, &source, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Sender = negotiation.Sender(sender)
		m.Type = negotiation.MessageType(msgType)
		if amount.Valid {
			m.Offer = &negotiation.Offer{
				Amount: amount.Float64,
				Final:  final.Valid && final.Bool,
				Source: negotiation.OfferSource(source.String),
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
