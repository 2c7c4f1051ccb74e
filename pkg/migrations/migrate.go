package main

import (
	"BPIApi/cmd/db"
	"BPIApi/internal/config"
	"BPIApi/internal/middleware"
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
	"errors"
	"os"
	"strings"

	"gorm.io/gorm"
)

// usage: migrate [create|drop|seed]...
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	if err = db.Connect(cfg.Postgres.DSN(), false); err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()

	steps := os.Args[1:]
	if len(steps) == 0 {
		steps = []string{"create"}
	}

	for _, step := range steps {
		switch step {
		case "drop":
			dropTables()
		case "create":
			createTables()
		case "seed":
			seedPackages()
			seedPickupCenters()
			seedAdmin()
		default:
			logger.Fatal("unknown step %q", step)
		}
	}

	logger.Info("Migrated.")
}

func dropTables() {
	if err := db.DB.Migrator().DropTable(models.All()...); err != nil {
		logger.Fatal("%v", err)
	}
}

func createTables() {
	if err := models.AutoMigrate(db.DB); err != nil {
		logger.Fatal("%v", err)
	}
}

// palliative rules shared by every package: L1 cash plus token, deeper
// levels feed the palliative wallets.
func rewardRules(l1Cash float64) []models.PackageRewardRule {
	return []models.PackageRewardRule{
		{Level: 1, Wallet: models.WalletCash, Percent: l1Cash},
		{Level: 1, Wallet: models.WalletToken, Percent: 2},
		{Level: 1, Wallet: models.WalletPalliative, Percent: 2},
		{Level: 2, Wallet: models.WalletCash, Percent: 3},
		{Level: 2, Wallet: models.WalletPalliative, Percent: 1},
		{Level: 3, Wallet: models.WalletCash, Percent: 2},
		{Level: 3, Wallet: models.WalletHealth, Percent: 1},
		{Level: 4, Wallet: models.WalletCash, Percent: 1},
		{Level: 4, Wallet: models.WalletEducation, Percent: 1},
	}
}

func seedPackages() {
	packages := []models.Package{
		{Name: "Regular", Description: "Entry membership", Price: 10000, VATPercent: 7.5, Active: true,
			RewardRules: rewardRules(10)},
		{Name: "Regular Plus", Description: "Adds car and land palliatives", Price: 50000, VATPercent: 7.5, Active: true,
			RewardRules: append(rewardRules(10),
				models.PackageRewardRule{Level: 1, Wallet: models.WalletCar, Percent: 2},
				models.PackageRewardRule{Level: 2, Wallet: models.WalletLand, Percent: 1})},
		{Name: "Gold", Description: "Full palliative coverage", Price: 210000, VATPercent: 7.5, Active: true,
			RewardRules: append(rewardRules(12),
				models.PackageRewardRule{Level: 1, Wallet: models.WalletCar, Percent: 2},
				models.PackageRewardRule{Level: 1, Wallet: models.WalletSolar, Percent: 1},
				models.PackageRewardRule{Level: 2, Wallet: models.WalletBusiness, Percent: 1},
				models.PackageRewardRule{Level: 2, Wallet: models.WalletLand, Percent: 1})},
	}

	for i := range packages {
		var existing models.Package
		err := db.DB.Where("name = ?", packages[i].Name).First(&existing).Error
		if err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Fatal("%v", err)
		}

		if err = db.DB.Create(&packages[i]).Error; err != nil {
			logger.Fatal("%v", err)
		}
		logger.Info("Seeded package %s", packages[i].Name)
	}
}

func seedPickupCenters() {
	var count int64
	if err := db.DB.Model(&models.PickupCenter{}).Count(&count).Error; err != nil {
		logger.Fatal("%v", err)
	}
	if count > 0 {
		return
	}

	centers := []models.PickupCenter{
		{Name: "BPI Lagos Hub", Address: "12 Allen Avenue, Ikeja", City: "Ikeja", State: "Lagos", Active: true},
		{Name: "BPI Abuja Hub", Address: "4 Aminu Kano Crescent, Wuse II", City: "Abuja", State: "FCT", Active: true},
		{Name: "BPI Port Harcourt Hub", Address: "27 Aba Road", City: "Port Harcourt", State: "Rivers", Active: true},
	}
	if err := db.DB.Create(&centers).Error; err != nil {
		logger.Fatal("%v", err)
	}
}

// seedAdmin creates the first admin from ADMIN_EMAIL / ADMIN_PASSWORD.
func seedAdmin() {
	email := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		logger.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return
	}

	exists, err := models.CheckIfUserExistsByEmailOrUsername(nil, email, "admin")
	if err != nil {
		logger.Fatal("%v", err)
	}
	if exists {
		return
	}

	hash, err := middleware.HashPassword(password)
	if err != nil {
		logger.Fatal("%v", err)
	}
	code, err := models.NewReferralCode(nil)
	if err != nil {
		logger.Fatal("%v", err)
	}

	admin := models.User{
		Email:        email,
		Username:     "admin",
		FullName:     "BPI Administrator",
		Password:     hash,
		Role:         models.RoleAdmin,
		ReferralCode: code,
		Activated:    true,
	}
	if err = db.DB.Create(&admin).Error; err != nil {
		logger.Fatal("%v", err)
	}
	logger.Info("Seeded admin %s", email)
}
