package repo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifelink/internal/infra"
)

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		cfg  infra.Config
	}{
		{"memory", infra.Config{StoreBackend: infra.BackendMemory}},
		{"file", infra.Config{StoreBackend: infra.BackendFile, DataDir: filepath.Join(dir, "data")}},
		{"default", infra.Config{DataDir: filepath.Join(dir, "default")}},
		{"sqlite", infra.Config{StoreBackend: infra.BackendSQLite, SQLitePath: filepath.Join(dir, "db", "ledger.db")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stores, err := Open(context.Background(), &tc.cfg, zerolog.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, stores.Close()) })

			require.NoError(t, stores.Ledger.Append(context.Background(), testDonation("0xfactory", 10)))
			doc, err := stores.Ledger.ReadAll(context.Background())
			require.NoError(t, err)
			assert.Len(t, doc.Donations, 1)
			assert.NotNil(t, stores.Users)
			assert.NotNil(t, stores.Feedback)
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &infra.Config{StoreBackend: "mongo"}, zerolog.Nop())
	assert.Error(t, err)
}
