package service

import (
	"BPIApi/cmd/db"
	"BPIApi/internal/models"
	"BPIApi/pkg/flutterwave"
	"BPIApi/pkg/logger"
	"BPIApi/pkg/paystack"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	webhookGuardPrefix = "bpi:webhook:"
	webhookGuardTTL    = 24 * time.Hour
	// amounts reported by gateways may differ from ours by rounding
	amountTolerance = 0.01
)

var (
	errGatewayUnavailable = errors.New("payment gateway not configured")
	errUnsupportedGateway = errors.New("unsupported payment gateway")
	errUnknownPayment     = errors.New("unknown payment reference")
	errAmountMismatch     = errors.New("paid amount lower than expected")
)

// Webhook outcomes, also used as metric labels.
const (
	webhookFulfilled = "fulfilled"
	webhookDuplicate = "duplicate"
	webhookIgnored   = "ignored"
	webhookRejected  = "rejected"
	webhookFailed    = "failed"
)

var referencePrefixes = map[models.PaymentPurpose]string{
	models.PurposePackage:       "PKG",
	models.PurposeWalletFunding: "FND",
	models.PurposeStoreOrder:    "ORD",
}

// initCheckout stores a PENDING payment and asks the gateway for a hosted
// checkout page.
func initCheckout(c *gin.Context, userID int64, gateway models.PaymentMethod, purpose models.PaymentPurpose,
	targetID int64, amount float64) (*models.Payment, error) {
	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	payment := models.Payment{
		Reference: fmt.Sprintf("%s-%s", referencePrefixes[purpose], strings.ToUpper(uuid.NewString())),
		Gateway:   gateway,
		Purpose:   purpose,
		TargetID:  targetID,
		UserID:    userID,
		Amount:    amount,
		Currency:  "NGN",
		Status:    models.PaymentPending,
	}
	if err := db.DB.Create(&payment).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	callbackURL := strings.TrimRight(frontendURL, "/") + "/payments/callback"
	url, err := requestCheckoutURL(ctx, &user, &payment, callbackURL)
	if err != nil {
		if saveErr := db.DB.Model(&payment).Update("status", models.PaymentFailed).Error; saveErr != nil {
			logger.Error("%v", saveErr)
		}
		return nil, err
	}

	payment.AuthorizationURL = url
	if err = db.DB.Model(&payment).Update("authorization_url", url).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	return &payment, nil
}

func requestCheckoutURL(ctx context.Context, user *models.User, payment *models.Payment, callbackURL string) (string, error) {
	meta := map[string]string{
		"purpose":   string(payment.Purpose),
		"target_id": strconv.FormatInt(payment.TargetID, 10),
	}

	switch payment.Gateway {
	case models.PaymentMethodPaystack:
		if paystackClient == nil {
			return "", errGatewayUnavailable
		}
		resp, err := paystackClient.Initialize(ctx, &paystack.InitializeRequest{
			Email:       user.Email,
			Amount:      paystack.ToKobo(payment.Amount),
			Reference:   payment.Reference,
			CallbackURL: callbackURL,
			Metadata:    meta,
		})
		if err != nil {
			return "", err
		}
		return resp.Data.AuthorizationURL, nil
	case models.PaymentMethodFlutterwave:
		if flutterwaveClient == nil {
			return "", errGatewayUnavailable
		}
		resp, err := flutterwaveClient.CreatePayment(ctx, &flutterwave.PaymentRequest{
			TxRef:       payment.Reference,
			Amount:      payment.Amount,
			Currency:    payment.Currency,
			RedirectURL: callbackURL,
			Customer:    flutterwave.Customer{Email: user.Email, Name: user.FullName, Phone: user.Phone},
			Meta:        meta,
		})
		if err != nil {
			return "", err
		}
		return resp.Data.Link, nil
	}
	return "", errUnsupportedGateway
}

func respondCheckoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errGatewayUnavailable), errors.Is(err, paystack.ErrNotConfigured),
		errors.Is(err, flutterwave.ErrNotConfigured):
		c.JSON(503, gin.H{"error": errGatewayUnavailable.Error()})
	case errors.Is(err, errUnsupportedGateway):
		c.JSON(400, gin.H{"error": err.Error()})
	default:
		logger.Error("%v", err)
		c.JSON(502, gin.H{"error": "Unable to reach payment gateway"})
	}
}

type fundWalletInput struct {
	Amount  float64              `json:"amount" validate:"required,gte=100"`
	Gateway models.PaymentMethod `json:"gateway" validate:"required,oneof=PAYSTACK FLUTTERWAVE"`
}

// FundWallet opens a gateway checkout that credits the cash wallet.
func FundWallet(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input fundWalletInput
	if !bindJSON(c, &input) {
		return
	}

	payment, err := initCheckout(c, userID, input.Gateway, models.PurposeWalletFunding, userID, input.Amount)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(201, payment)
}

func GetUserPayments(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	payments, err := models.ListUserPayments(nil, userID)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, payments)
}

func PaystackWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(400, gin.H{"error": "Unable to read body"})
		return
	}

	if !paystackClient.VerifySignature(body, c.GetHeader(paystack.SignatureHeader)) {
		bpiMetrics.ObserveWebhook(string(models.PaymentMethodPaystack), webhookRejected)
		c.JSON(401, gin.H{"error": "signature not valid"})
		return
	}

	var event paystack.WebhookEvent
	if err = json.Unmarshal(body, &event); err != nil {
		c.JSON(400, gin.H{"error": "Unable to unmarshal body"})
		return
	}
	logger.Debug("Paystack webhook: %s %s", event.Event, event.Data.Reference)

	if !event.Succeeded() {
		bpiMetrics.ObserveWebhook(string(models.PaymentMethodPaystack), webhookIgnored)
		c.JSON(200, gin.H{"status": webhookIgnored})
		return
	}

	handleSettlement(c, models.PaymentMethodPaystack, event.Data.Reference,
		paystack.FromKobo(event.Data.Amount), strconv.FormatInt(event.Data.ID, 10))
}

func FlutterwaveWebhook(c *gin.Context) {
	if !flutterwaveClient.VerifyHash(c.GetHeader(flutterwave.HashHeader)) {
		bpiMetrics.ObserveWebhook(string(models.PaymentMethodFlutterwave), webhookRejected)
		c.JSON(401, gin.H{"error": "signature not valid"})
		return
	}

	var event flutterwave.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(400, gin.H{"error": "Unable to unmarshal body"})
		return
	}
	logger.Debug("Flutterwave webhook: %s %s", event.Event, event.Data.TxRef)

	if !event.Succeeded() {
		bpiMetrics.ObserveWebhook(string(models.PaymentMethodFlutterwave), webhookIgnored)
		c.JSON(200, gin.H{"status": webhookIgnored})
		return
	}

	handleSettlement(c, models.PaymentMethodFlutterwave, event.Data.TxRef,
		event.Data.Amount, strconv.FormatInt(event.Data.ID, 10))
}

// handleSettlement answers 200 for every outcome the gateway must not retry.
func handleSettlement(c *gin.Context, gateway models.PaymentMethod, reference string, paid float64, gatewayTxID string) {
	outcome, err := SettlePayment(c.Request.Context(), gateway, reference, paid, gatewayTxID)
	bpiMetrics.ObserveWebhook(string(gateway), outcome)
	if err != nil {
		switch {
		case errors.Is(err, errUnknownPayment), errors.Is(err, errAmountMismatch):
			logger.Warn("%s webhook for %s rejected: %v", gateway, reference, err)
		default:
			logger.Error("%v", err)
			c.Status(500)
			return
		}
	}

	c.JSON(200, gin.H{"status": outcome})
}

// SettlePayment fulfils a successful gateway payment exactly once. The
// PENDING status of the locked payment row is the source of truth; the Redis
// guard only short-circuits concurrent redeliveries.
func SettlePayment(ctx context.Context, gateway models.PaymentMethod, reference string, paid float64, gatewayTxID string) (string, error) {
	if cache != nil {
		created, err := cache.SetIfAbsent(ctx, webhookGuardPrefix+reference, gatewayTxID, webhookGuardTTL)
		if err != nil {
			logger.Warn("webhook guard unavailable: %v", err)
		} else if !created {
			return webhookDuplicate, nil
		}
	}

	outcome := webhookFulfilled
	var payouts []Payout
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		payment, err := models.LockPaymentByReference(tx, reference)
		if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
			return errUnknownPayment
		} else if err != nil {
			return logger.WrapError(err, "")
		}

		if payment.Gateway != gateway {
			return errUnknownPayment
		}
		if payment.Status == models.PaymentSuccess {
			outcome = webhookDuplicate
			return nil
		}
		if paid+amountTolerance < payment.Amount {
			if err = tx.Model(payment).Update("status", models.PaymentFailed).Error; err != nil {
				return logger.WrapError(err, "")
			}
			outcome = webhookRejected
			return nil
		}

		if payouts, err = fulfilPayment(tx, payment); err != nil {
			return err
		}

		now := time.Now()
		payment.Status = models.PaymentSuccess
		payment.PaidAt = &now
		payment.GatewayTxID = gatewayTxID
		if err = tx.Save(payment).Error; err != nil {
			return logger.WrapError(err, "")
		}
		return nil
	})
	if err != nil {
		// let the gateway retry
		if cache != nil {
			if delErr := cache.DeleteKey(ctx, webhookGuardPrefix+reference); delErr != nil {
				logger.Warn("%v", delErr)
			}
		}
		if errors.Is(err, errUnknownPayment) {
			return webhookRejected, err
		}
		return webhookFailed, err
	}
	if outcome == webhookRejected {
		return outcome, errAmountMismatch
	}

	reportPayouts(payouts, reference)
	return outcome, nil
}

// fulfilPayment applies the purpose of a settled payment.
func fulfilPayment(tx *gorm.DB, payment *models.Payment) ([]Payout, error) {
	switch payment.Purpose {
	case models.PurposeWalletFunding:
		_, err := models.CreditWallet(tx, models.LedgerEntry{
			UserID:      payment.UserID,
			Wallet:      models.WalletCash,
			Amount:      payment.Amount,
			Type:        models.TxDeposit,
			Description: fmt.Sprintf("Wallet funding via %s", payment.Gateway),
			Reference:   payment.Reference,
		})
		return nil, err

	case models.PurposePackage:
		var pkg models.Package
		if err := tx.Preload("RewardRules").First(&pkg, payment.TargetID).Error; err != nil {
			return nil, logger.WrapError(err, "")
		}

		_, payouts, err := ActivateMembership(tx, payment.UserID, &pkg, payment.Gateway, payment.Amount, payment.Reference)
		if errors.Is(err, models.ErrAlreadyMember) {
			// paid twice for the same package: keep the money on the wallet
			_, err = models.CreditWallet(tx, models.LedgerEntry{
				UserID:      payment.UserID,
				Wallet:      models.WalletCash,
				Amount:      payment.Amount,
				Type:        models.TxDeposit,
				Description: fmt.Sprintf("%s membership already active, payment credited", pkg.Name),
				Reference:   payment.Reference,
			})
			return nil, err
		}
		return payouts, err

	case models.PurposeStoreOrder:
		return nil, markOrderPaid(tx, payment.TargetID, payment.Gateway)
	}

	return nil, fmt.Errorf("unknown payment purpose %q", payment.Purpose)
}
