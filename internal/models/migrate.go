package models

import "gorm.io/gorm"

// All lists every table in dependency order.
func All() []interface{} {
	return []interface{}{
		&PickupCenter{},
		&User{},
		&Referral{},
		&Transaction{},
		&Package{},
		&PackageRewardRule{},
		&Membership{},
		&Payment{},
		&Withdrawal{},
		&Product{},
		&Order{},
		&OrderItem{},
		&Claim{},
		&RevenueAllocation{},
		&ExecutiveShareholder{},
		&ExecutiveDistribution{},
		&BlogPost{},
		&HelpArticle{},
		&Notification{},
	}
}

// AutoMigrate creates or updates every table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
