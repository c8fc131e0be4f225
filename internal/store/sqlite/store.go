// Package sqlite provides the SQLite-backed invoice store. It also holds
// local user accounts and analytics events.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/rezonia/invoicer/internal/analytics"
	"github.com/rezonia/invoicer/internal/auth"
	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/store"
	"github.com/rezonia/invoicer/internal/store/sqlite/migrations"
)

// Store persists invoices in SQLite
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
	newID func() string
}

var (
	_ store.Gateway      = (*Store)(nil)
	_ auth.UserStore     = (*Store)(nil)
	_ analytics.Recorder = (*Store)(nil)
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies the embedded schema
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "ping sqlite db")
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return &Store{sqlDB: sqlDB, now: time.Now, newID: uuid.NewString}, nil
}

// Close closes the SQLite handle
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save inserts a copy of inv owned by ownerID and returns its new id
func (s *Store) Save(ctx context.Context, ownerID string, inv model.Invoice) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(ownerID) == "" {
		return "", model.Unauthorized("owner is required")
	}

	row := store.RowFromInvoice(ownerID, inv)
	items, err := json.Marshal(row.Items)
	if err != nil {
		return "", errors.Wrap(err, "encode items")
	}

	id := s.newID()
	now := toMillis(s.now())
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO invoices (
		   id, user_id, invoice_number, date, due_date,
		   from_name, from_email, from_address, from_city, from_postal_code, from_country, from_logo,
		   to_name, to_email, to_address, to_city, to_postal_code, to_country,
		   items, subtotal, discount_type, discount_value, discount_amount,
		   tax_rate, tax_amount, total, currency, notes, terms,
		   signature_name, signature_image, created_at, updated_at, is_deleted
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		id, row.UserID, row.InvoiceNumber, row.Date, row.DueDate,
		row.FromName, row.FromEmail, row.FromAddress, row.FromCity, row.FromPostalCode, row.FromCountry, row.FromLogo,
		row.ToName, row.ToEmail, row.ToAddress, row.ToCity, row.ToPostalCode, row.ToCountry,
		string(items), row.Subtotal.String(), row.DiscountType, row.DiscountValue.String(), row.DiscountAmount.String(),
		row.TaxRate.String(), row.TaxAmount.String(), row.Total.String(), row.Currency, row.Notes, row.Terms,
		row.SignatureName, row.SignatureImage, now, now,
	)
	if err != nil {
		return "", model.NewExternalError("save invoice", "insert failed", err)
	}
	return id, nil
}

// List returns the owner's invoices that are not deleted, newest first
func (s *Store) List(ctx context.Context, ownerID string) ([]store.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, invoice_number, date, due_date, to_name, currency, total, created_at
		 FROM invoices
		 WHERE user_id = ? AND is_deleted = 0
		 ORDER BY created_at DESC, rowid DESC`,
		ownerID,
	)
	if err != nil {
		return nil, model.NewExternalError("list invoices", "query failed", err)
	}
	defer rows.Close()

	summaries := []store.Summary{}
	for rows.Next() {
		var (
			sum       store.Summary
			total     string
			createdAt int64
		)
		if err := rows.Scan(&sum.ID, &sum.InvoiceNumber, &sum.Date, &sum.DueDate, &sum.ToName, &sum.Currency, &total, &createdAt); err != nil {
			return nil, model.NewExternalError("list invoices", "scan failed", err)
		}
		sum.Total = parseDecimal(total)
		sum.CreatedAt = fromMillis(createdAt)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewExternalError("list invoices", "iteration failed", err)
	}
	return summaries, nil
}

// Get loads one invoice owned by ownerID. Deleted invoices are not found.
func (s *Store) Get(ctx context.Context, ownerID, id string) (model.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return model.Invoice{}, err
	}

	var (
		row                                              store.Row
		items                                            string
		subtotal, discountValue, discountAmount, taxRate string
		taxAmount, total                                 string
		createdAt, updatedAt                             int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, user_id, invoice_number, date, due_date,
		   from_name, from_email, from_address, from_city, from_postal_code, from_country, from_logo,
		   to_name, to_email, to_address, to_city, to_postal_code, to_country,
		   items, subtotal, discount_type, discount_value, discount_amount,
		   tax_rate, tax_amount, total, currency, notes, terms,
		   signature_name, signature_image, created_at, updated_at
		 FROM invoices
		 WHERE id = ? AND user_id = ? AND is_deleted = 0`,
		id, ownerID,
	).Scan(
		&row.ID, &row.UserID, &row.InvoiceNumber, &row.Date, &row.DueDate,
		&row.FromName, &row.FromEmail, &row.FromAddress, &row.FromCity, &row.FromPostalCode, &row.FromCountry, &row.FromLogo,
		&row.ToName, &row.ToEmail, &row.ToAddress, &row.ToCity, &row.ToPostalCode, &row.ToCountry,
		&items, &subtotal, &row.DiscountType, &discountValue, &discountAmount,
		&taxRate, &taxAmount, &total, &row.Currency, &row.Notes, &row.Terms,
		&row.SignatureName, &row.SignatureImage, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Invoice{}, model.NotFound("invoice", id)
	}
	if err != nil {
		return model.Invoice{}, model.NewExternalError("get invoice", "query failed", err)
	}

	if err := json.Unmarshal([]byte(items), &row.Items); err != nil {
		return model.Invoice{}, errors.Wrap(err, "decode items")
	}
	row.Subtotal = parseDecimal(subtotal)
	row.DiscountValue = parseDecimal(discountValue)
	row.DiscountAmount = parseDecimal(discountAmount)
	row.TaxRate = parseDecimal(taxRate)
	row.TaxAmount = parseDecimal(taxAmount)
	row.Total = parseDecimal(total)
	return row.Invoice(), nil
}

// SoftDelete marks an invoice deleted. Unknown, foreign and already deleted
// invoices are not found.
func (s *Store) SoftDelete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE invoices SET is_deleted = 1, updated_at = ?
		 WHERE id = ? AND user_id = ? AND is_deleted = 0`,
		toMillis(s.now()), id, ownerID,
	)
	if err != nil {
		return model.NewExternalError("delete invoice", "update failed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.NewExternalError("delete invoice", "update failed", err)
	}
	if n == 0 {
		return model.NotFound("invoice", id)
	}
	return nil
}

// CreateUser inserts a local account
func (s *Store) CreateUser(ctx context.Context, u auth.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrEmailTaken
		}
		return errors.Wrap(err, "create user")
	}
	return nil
}

// UserByEmail loads a local account
func (s *Store) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	if err := ctx.Err(); err != nil {
		return auth.User{}, err
	}
	var (
		u         auth.User
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, model.NotFound("user", email)
	}
	if err != nil {
		return auth.User{}, errors.Wrap(err, "get user")
	}
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

// Record stores an analytics event
func (s *Store) Record(ctx context.Context, e analytics.Event) error {
	var data sql.NullString
	if len(e.Data) > 0 {
		encoded, err := json.Marshal(e.Data)
		if err != nil {
			return errors.Wrap(err, "encode event data")
		}
		data = sql.NullString{String: string(encoded), Valid: true}
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO analytics (id, event_type, event_data, user_id, user_agent, ip_address, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.newID(), string(e.Type), data, e.UserID, e.UserAgent, e.IPAddress, toMillis(createdAt),
	)
	if err != nil {
		return errors.Wrap(err, "record event")
	}
	return nil
}

// CountEvents returns how many events of type t were recorded
func (s *Store) CountEvents(ctx context.Context, t analytics.EventType) (int, error) {
	var n int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM analytics WHERE event_type = ?`, string(t)).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count events")
	}
	return n, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// applyMigrations runs every embedded .sql file once, in name order
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	if _, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
	    name TEXT PRIMARY KEY,
	    applied_at INTEGER NOT NULL
	)`); err != nil {
		return errors.Wrap(err, "ensure migration table")
	}

	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return errors.Wrap(err, "read migrations dir")
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var applied int
		if err := sqlDB.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, name).Scan(&applied); err != nil {
			return errors.Wrapf(err, "check migration %s", name)
		}
		if applied > 0 {
			continue
		}

		content, err := fs.ReadFile(migrationFS, name)
		if err != nil {
			return errors.Wrapf(err, "read migration %s", name)
		}

		tx, err := sqlDB.Begin()
		if err != nil {
			return errors.Wrap(err, "begin migration")
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, name, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "record migration %s", name)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "commit migration %s", name)
		}
	}
	return nil
}
