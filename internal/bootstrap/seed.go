package bootstrap

import (
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"skaila.com/gamification/internal/entity"
	"skaila.com/gamification/internal/rulebook"
)

// Migrate creates or updates every gamification table. It runs at startup,
// never inside an award transaction.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.UserGamification{},
		&entity.XPLedgerEntry{},
		&entity.LeaderboardRow{},
		&entity.Badge{},
		&entity.UserBadge{},
		&entity.Challenge{},
		&entity.UserChallenge{},
		&entity.PowerUp{},
		&entity.UserPowerUp{},
		&entity.Event{},
		&entity.Notification{},
		&entity.WindowReset{},
	)
}

// SeedCatalog mirrors the loaded catalog into the catalog tables so that
// storage-side lookups (power-ups, events) and reporting see the same rules.
func SeedCatalog(db *gorm.DB, rules *rulebook.Rulebook) error {
	badges := rules.BadgeRows()
	challenges := rules.ChallengeRows()
	powerUps := rules.PowerUpRows()
	events := rules.EventRows()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := upsert(tx, &badges, len(badges)); err != nil {
			return err
		}
		if err := upsert(tx, &challenges, len(challenges)); err != nil {
			return err
		}
		if err := upsert(tx, &powerUps, len(powerUps)); err != nil {
			return err
		}
		return upsert(tx, &events, len(events))
	})
	if err != nil {
		return err
	}

	log.Printf("✅ Catalog seeded: %d badges, %d challenges, %d power-ups, %d events",
		len(badges), len(challenges), len(powerUps), len(events))
	return nil
}

func upsert(tx *gorm.DB, rows interface{}, n int) error {
	if n == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(rows).Error
}
