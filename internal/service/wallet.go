package service

import (
	"BPIApi/cmd/db"
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
	"strings"

	"github.com/gin-gonic/gin"
)

type walletBalances struct {
	Cash       float64 `json:"cash"`
	Token      float64 `json:"token"`
	TokenValue float64 `json:"token_value"`
	Palliative float64 `json:"palliative"`
	Car        float64 `json:"car"`
	Land       float64 `json:"land"`
	Education  float64 `json:"education"`
	Business   float64 `json:"business"`
	Solar      float64 `json:"solar"`
	Health     float64 `json:"health"`
	BPTPrice   float64 `json:"bpt_price"`
}

func GetWallet(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, walletBalances{
		Cash:       user.CashBalance,
		Token:      user.TokenBalance,
		TokenValue: FromTokens(user.TokenBalance, settings.BPTPrice),
		Palliative: user.PalliativeBalance,
		Car:        user.CarBalance,
		Land:       user.LandBalance,
		Education:  user.EducationBalance,
		Business:   user.BusinessBalance,
		Solar:      user.SolarBalance,
		Health:     user.HealthBalance,
		BPTPrice:   settings.BPTPrice,
	})
}

// GetWalletTransactions pages through the ledger, optionally for one wallet.
func GetWalletTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	wallet := models.Wallet(strings.ToUpper(c.Query("wallet")))
	if wallet != "" && !wallet.Valid() {
		c.JSON(400, gin.H{"error": models.ErrUnknownWallet.Error()})
		return
	}

	page, pageSize := pagination(c)
	txs, total, err := models.ListUserTransactions(nil, userID, wallet, page, pageSize)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, gin.H{"items": txs, "total": total, "page": page, "page_size": pageSize})
}
