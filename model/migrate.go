package model

import "gorm.io/gorm"

func MigrateTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&CodeforcesProblem{},
		&Battle{},
		&BattlePlayer{},
		&BattleProblem{},
		&BattleAttempt{},
		&BattleSolve{},
	)
}
