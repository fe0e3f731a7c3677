package database

import (
	"log"

	"gorm.io/gorm"

	"futures_engine/internal/models"
)

// AutoMigrateAll creates/updates every table the engine owns. Called once
// at startup (§6 External Interfaces, config validation path).
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Exchange{},
		&models.Order{},
		&models.Trade{},
		&models.Position{},
		&models.ClosedPosition{},
		&models.PortfolioSnapshot{},
		&models.MarketRegime{},
		&models.TradingSignal{},
		&models.DecisionRecord{},
		&models.Kline{},
		&models.AccountSettings{},
		&models.SystemEvent{},
		&models.PerformanceMetric{},
		&models.Strategy{},
		&models.Experience{},
	); err != nil {
		return err
	}
	return ensurePartialIndexes(db)
}

// ensurePartialIndexes creates constraints gorm struct tags can't express:
// a position is only unique while open (hedge mode allows a closed long and
// a new long on the same symbol to coexist in history), so the uniqueness
// constraint must be a partial index, not a plain composite one (§3
// Position, §8 invariant 1).
func ensurePartialIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec(`DROP INDEX IF EXISTS idx_open_position`).Error; err != nil {
		return err
	}
	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_open_unique
		ON positions (exchange_id, symbol, side)
		WHERE is_open = true
	`).Error
}

// Migrate drops and recreates every engine table. Development-only reset
// path, never called from the normal startup sequence.
func Migrate(db *gorm.DB) error {
	tables := []string{
		"experiences",
		"strategies",
		"performance_metrics",
		"system_events",
		"account_settings",
		"klines",
		"decision_records",
		"trading_signals",
		"market_regimes",
		"portfolio_snapshots",
		"closed_positions",
		"positions",
		"trades",
		"orders",
		"exchanges",
	}
	for _, table := range tables {
		if err := db.Migrator().DropTable(table); err != nil {
			log.Printf("warning: failed to drop %s: %v", table, err)
		}
	}
	if err := AutoMigrateAll(db); err != nil {
		return err
	}
	log.Println("migration completed - all tables recreated")
	return nil
}
