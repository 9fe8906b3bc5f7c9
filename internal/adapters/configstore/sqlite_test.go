package configstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lcalzada-xor/wired/internal/core/domain"
)

func setupInMemoryStore(t *testing.T) *Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&networkProfileModel{}))
	return &Store{db: db}
}

func TestSaveAndLoad(t *testing.T) {
	s := setupInMemoryStore(t)
	ctx := context.Background()

	profile := domain.NetworkProfile{
		SSID:       "home-net",
		Security:   "psk",
		Passphrase: "correct-horse-battery-staple",
		IsAP:       false,
	}
	require.NoError(t, s.Save(ctx, profile))

	got, err := s.Load(ctx, "home-net")
	require.NoError(t, err)
	require.Equal(t, profile, got)
}

func TestSaveUpserts(t *testing.T) {
	s := setupInMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, domain.NetworkProfile{SSID: "guest", Passphrase: "first"}))
	require.NoError(t, s.Save(ctx, domain.NetworkProfile{SSID: "guest", Passphrase: "second"}))

	got, err := s.Load(ctx, "guest")
	require.NoError(t, err)
	require.Equal(t, "second", got.Passphrase)
}

func TestDelete(t *testing.T) {
	s := setupInMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, domain.NetworkProfile{SSID: "temp"}))
	require.NoError(t, s.Delete(ctx, "temp"))

	_, err := s.Load(ctx, "temp")
	require.Error(t, err)
}

func TestList(t *testing.T) {
	s := setupInMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, domain.NetworkProfile{SSID: "a"}))
	require.NoError(t, s.Save(ctx, domain.NetworkProfile{SSID: "b"}))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
}
