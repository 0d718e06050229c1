package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"lifelink/internal/domain"
	"lifelink/internal/sqlinline"
)

// OpenSQLite opens the database file at path and creates the tables.
// SQLite serializes writers itself, so each append is one atomic insert.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite: database path cannot be empty")
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	for _, stmt := range sqlinline.SQLiteSchema {
		if _, err := db.ExecContext(ctx, mustBody(stmt)); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: ensure schema: %w", err)
		}
	}
	return db, nil
}

func mustBody(query string) string {
	_, body, err := sqlinline.Split(query)
	if err != nil {
		panic(err)
	}
	return body
}

func isSQLiteConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// LedgerSQLite implements domain.LedgerStore on SQLite.
type LedgerSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewLedgerSQLite(db *sql.DB) *LedgerSQLite {
	return &LedgerSQLite{db: db, now: time.Now}
}

func (l *LedgerSQLite) Append(ctx context.Context, rec domain.Record) error {
	payload, createdAt, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx, mustBody(sqlinline.QSQLiteInsertLedgerRecord),
		rec.RecordID(), string(rec.Collection()), string(payload), createdAt.Format(time.RFC3339Nano))
	if err != nil {
		if isSQLiteConstraint(err) {
			return fmt.Errorf("%w: %s %s already recorded", domain.ErrConflict, rec.Collection().RecordType(), rec.RecordID())
		}
		return fmt.Errorf("insert ledger record: %w", err)
	}
	return nil
}

func (l *LedgerSQLite) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *LedgerSQLite) ReadAll(ctx context.Context) (*domain.LedgerDocument, error) {
	rows, err := l.db.QueryContext(ctx, mustBody(sqlinline.QListLedgerRecords))
	if err != nil {
		return nil, fmt.Errorf("list ledger records: %w", err)
	}
	defer rows.Close()

	doc := domain.NewLedgerDocument()
	for rows.Next() {
		var collection, payload string
		if err := rows.Scan(&collection, &payload); err != nil {
			return nil, err
		}
		if err := decodeInto(doc, domain.Collection(collection), []byte(payload)); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	doc.Refresh(lastActivity(doc, l.now))
	return doc, nil
}

// UserSQLite implements domain.UserStore on SQLite.
type UserSQLite struct {
	db *sql.DB
}

func NewUserSQLite(db *sql.DB) *UserSQLite {
	return &UserSQLite{db: db}
}

func (u *UserSQLite) Create(ctx context.Context, user *domain.User) error {
	_, err := u.db.ExecContext(ctx, mustBody(sqlinline.QSQLiteInsertLedgerUser),
		user.Username, user.PasswordHash, string(user.Role), user.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isSQLiteConstraint(err) {
			return fmt.Errorf("%w: username %q already registered", domain.ErrConflict, user.Username)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (u *UserSQLite) Get(ctx context.Context, username string) (*domain.User, error) {
	row := u.db.QueryRowContext(ctx, mustBody(sqlinline.QSQLiteSelectLedgerUser), username)
	var user domain.User
	var role, createdAt string
	if err := row.Scan(&user.Username, &user.PasswordHash, &role, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	user.Role = domain.UserRole(role)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		user.CreatedAt = t
	}
	return &user, nil
}

// FeedbackSQLite implements domain.FeedbackStore on SQLite.
type FeedbackSQLite struct {
	db *sql.DB
}

func NewFeedbackSQLite(db *sql.DB) *FeedbackSQLite {
	return &FeedbackSQLite{db: db}
}

func (f *FeedbackSQLite) Create(ctx context.Context, fb *domain.Feedback) error {
	payload, err := json.Marshal(fb)
	if err != nil {
		return err
	}
	_, err = f.db.ExecContext(ctx, mustBody(sqlinline.QSQLiteInsertFeedback),
		fb.ID, string(payload), fb.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (f *FeedbackSQLite) List(ctx context.Context) ([]domain.Feedback, error) {
	rows, err := f.db.QueryContext(ctx, mustBody(sqlinline.QListFeedback))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.Feedback{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var fb domain.Feedback
		if err := json.Unmarshal([]byte(payload), &fb); err != nil {
			return nil, fmt.Errorf("decode feedback: %w", err)
		}
		items = append(items, fb)
	}
	return items, rows.Err()
}
