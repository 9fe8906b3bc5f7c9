// Package configstore adapts a SQLite-backed GORM database to ports.ConfigStore
// (§4.9, §6 "Persisted state"): network profiles and the PEM paths that
// qualify them, addressed by SSID.
package configstore

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/lcalzada-xor/wired/internal/core/domain"
	"github.com/lcalzada-xor/wired/internal/core/ports"
)

// networkProfileModel is the GORM row shape for domain.NetworkProfile,
// keyed by SSID. PEM material stays on disk; only the paths are persisted.
type networkProfileModel struct {
	SSID        string `gorm:"primaryKey"`
	Security    string
	Passphrase  string
	PSKHex      string
	PEMCertPath string
	PEMKeyPath  string
	IsAP        bool
	APChannel   int
	DHCPConfig  []byte
}

func (networkProfileModel) TableName() string { return "network_profiles" }

func toModel(p domain.NetworkProfile) networkProfileModel {
	return networkProfileModel{
		SSID:        p.SSID,
		Security:    p.Security,
		Passphrase:  p.Passphrase,
		PSKHex:      p.PSKHex,
		PEMCertPath: p.PEMCertPath,
		PEMKeyPath:  p.PEMKeyPath,
		IsAP:        p.IsAP,
		APChannel:   p.APChannel,
		DHCPConfig:  p.DHCPConfig,
	}
}

func (m networkProfileModel) toDomain() domain.NetworkProfile {
	return domain.NetworkProfile{
		SSID:        m.SSID,
		Security:    m.Security,
		Passphrase:  m.Passphrase,
		PSKHex:      m.PSKHex,
		PEMCertPath: m.PEMCertPath,
		PEMKeyPath:  m.PEMKeyPath,
		IsAP:        m.IsAP,
		APChannel:   m.APChannel,
		DHCPConfig:  m.DHCPConfig,
	}
}

// Store is a gorm+sqlite implementation of ports.ConfigStore.
type Store struct {
	db *gorm.DB
}

var _ ports.ConfigStore = (*Store)(nil)

// Open opens (and migrates) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("configstore: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&networkProfileModel{}); err != nil {
		return nil, fmt.Errorf("configstore: migrate: %w", err)
	}
	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("configstore: install tracing plugin: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA busy_timeout=5000;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	return &Store{db: db}, nil
}

// Load returns the profile for ssid (§4.9 Load).
func (s *Store) Load(ctx context.Context, ssid string) (domain.NetworkProfile, error) {
	var m networkProfileModel
	if err := s.db.WithContext(ctx).First(&m, "ssid = ?", ssid).Error; err != nil {
		return domain.NetworkProfile{}, fmt.Errorf("configstore: load %q: %w", ssid, err)
	}
	return m.toDomain(), nil
}

// Save upserts profile by SSID (§4.9 Save).
func (s *Store) Save(ctx context.Context, profile domain.NetworkProfile) error {
	m := toModel(profile)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ssid"}},
		UpdateAll: true,
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("configstore: save %q: %w", profile.SSID, err)
	}
	return nil
}

// Delete removes the profile for ssid (§4.9 Delete).
func (s *Store) Delete(ctx context.Context, ssid string) error {
	if err := s.db.WithContext(ctx).Delete(&networkProfileModel{}, "ssid = ?", ssid).Error; err != nil {
		return fmt.Errorf("configstore: delete %q: %w", ssid, err)
	}
	return nil
}

// List returns every persisted profile (§4.9 List).
func (s *Store) List(ctx context.Context) ([]domain.NetworkProfile, error) {
	var rows []networkProfileModel
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("configstore: list: %w", err)
	}
	out := make([]domain.NetworkProfile, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
