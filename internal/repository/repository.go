package repository

import "gorm.io/gorm"

// conn prefers the caller's transaction so a repository call joins it.
func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
