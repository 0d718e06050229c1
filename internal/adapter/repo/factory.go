package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"lifelink/internal/domain"
	"lifelink/internal/infra"
	"lifelink/internal/storage"
)

// Stores bundles the persistence of one backend.
type Stores struct {
	Backend  string
	Ledger   domain.LedgerStore
	Users    domain.UserStore
	Feedback domain.FeedbackStore

	closers []func() error
}

// Close releases every resource the backend opened, newest first.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Open builds the stores selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Stores, error) {
	s := &Stores{Backend: cfg.StoreBackend}
	var err error
	switch cfg.StoreBackend {
	case infra.BackendMemory:
		s.Ledger, s.Users, s.Feedback = NewLedgerMemory(), NewUserMemory(), NewFeedbackMemory()
	case infra.BackendFile, "":
		s.Backend = infra.BackendFile
		err = s.openFile(cfg.DataDir)
	case infra.BackendSQLite:
		err = s.openSQLite(ctx, cfg.SQLitePath)
	case infra.BackendPostgres:
		err = s.openPostgres(ctx, cfg.DatabaseURL, logger)
	default:
		err = fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	logger.Info().Str("backend", s.Backend).Msg("stores ready")
	return s, nil
}

func (s *Stores) openFile(dataDir string) error {
	fs, err := storage.NewFileStore(dataDir)
	if err != nil {
		return err
	}
	ledger, err := NewLedgerFile(fs)
	if err != nil {
		return err
	}
	s.Ledger = ledger
	s.closers = append(s.closers, ledger.Close)

	users, err := NewUserFile(fs)
	if err != nil {
		return err
	}
	s.Users = users
	s.closers = append(s.closers, users.Close)

	fb, err := NewFeedbackFile(fs)
	if err != nil {
		return err
	}
	s.Feedback = fb
	s.closers = append(s.closers, fb.Close)
	return nil
}

func (s *Stores) openSQLite(ctx context.Context, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("sqlite: create directory: %w", err)
		}
	}
	db, err := OpenSQLite(ctx, path)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, db.Close)
	s.Ledger, s.Users, s.Feedback = NewLedgerSQLite(db), NewUserSQLite(db), NewFeedbackSQLite(db)
	return nil
}

func (s *Stores) openPostgres(ctx context.Context, databaseURL string, logger infra.Logger) error {
	pool, err := infra.NewDBPool(ctx, databaseURL)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, func() error { pool.Close(); return nil })
	runner := infra.NewSQLRunner(pool, logger)
	if err := EnsurePostgresSchema(ctx, runner); err != nil {
		return err
	}
	s.Ledger, s.Users, s.Feedback = NewLedgerPG(runner), NewUserPG(runner), NewFeedbackPG(runner)
	return nil
}
