package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
	"fintrack/internal/core"
)

func TestFactoryCreateSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "fintrack.db")
	res, err := NewFactory(nil).Create(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	assert.NotNil(t, res.Repository)
	assert.Nil(t, res.Publisher)

	id, err := res.Store.Create(context.Background(), core.Transaction{
		Date: core.NewDate(2024, 3, 1), Category: "Food", Amount: core.Money{Cents: 100}, Kind: core.Expense,
	})
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestFactoryCreateMemory(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.csv")
	require.NoError(t, os.WriteFile(seed, []byte(
		"id,date,category,description,amount,is_income\n"+
			"1,2024-03-01,Salary,,100.00,true\n"), 0o644))

	res, err := NewFactory(nil).Create(context.Background(), Config{Type: MemoryBackend, SeedFile: seed})
	require.NoError(t, err)
	assert.Nil(t, res.Repository)

	cats, err := res.Store.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Salary"}, cats)
	assert.NoError(t, res.Cleanup())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"memory", Config{Type: MemoryBackend}, false},
		{"memory with amqp", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost/"}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "postgres"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{DataBackend: "memory", MemorySeedFile: "seed.csv"})
	require.NoError(t, err)
	assert.Equal(t, MemoryBackend, cfg.Type)
	assert.Equal(t, "seed.csv", cfg.SeedFile)
}
