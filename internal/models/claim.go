package models

import (
	"BPIApi/cmd/db"
	"BPIApi/pkg/logger"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClaimStatus string

const (
	ClaimNotReady   ClaimStatus = "NOT_READY"
	ClaimCodeIssued ClaimStatus = "CODE_ISSUED"
	ClaimVerified   ClaimStatus = "VERIFIED"
	ClaimCompleted  ClaimStatus = "COMPLETED"
)

// claimOrder is the only path a claim may take.
var claimOrder = []ClaimStatus{ClaimNotReady, ClaimCodeIssued, ClaimVerified, ClaimCompleted}

func (s ClaimStatus) rank() int {
	for i, st := range claimOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// CanAdvanceTo allows only the immediate successor of s.
func (s ClaimStatus) CanAdvanceTo(next ClaimStatus) bool {
	from, to := s.rank(), next.rank()
	return from >= 0 && to == from+1
}

var claimCodePattern = regexp.MustCompile(`(?i)^BPI-[0-9]{6}-PC$`)

// NormalizeClaimCode trims and upper-cases a code typed by staff.
func NormalizeClaimCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidClaimCode reports whether code has the BPI-######-PC shape,
// ignoring case.
func ValidClaimCode(code string) bool {
	return claimCodePattern.MatchString(code)
}

// GenerateClaimCode returns BPI-<six random digits>-PC.
func GenerateClaimCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("BPI-%06d-PC", n.Int64()), nil
}

// Claim gates the physical release of a pickup order.
type Claim struct {
	ID             int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        int64       `gorm:"uniqueIndex;not null;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"order_id"`
	PickupCenterID int64       `gorm:"index;not null" json:"pickup_center_id"`
	Code           *string     `gorm:"uniqueIndex;size:16" json:"code,omitempty"`
	Status         ClaimStatus `gorm:"size:16;index;default:NOT_READY" json:"status"`
	IssuedAt       *time.Time  `json:"issued_at,omitempty"`
	VerifiedAt     *time.Time  `json:"verified_at,omitempty"`
	VerifiedBy     *int64      `json:"verified_by,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	CompletedBy    *int64      `json:"completed_by,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Advance moves the claim one step forward and stamps the matching
// timestamp. actorID is recorded for VERIFIED and COMPLETED.
func (c *Claim) Advance(next ClaimStatus, actorID int64, at time.Time) error {
	if !c.Status.CanAdvanceTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrClaimTransition, c.Status, next)
	}

	switch next {
	case ClaimCodeIssued:
		c.IssuedAt = &at
	case ClaimVerified:
		c.VerifiedAt = &at
		c.VerifiedBy = &actorID
	case ClaimCompleted:
		c.CompletedAt = &at
		c.CompletedBy = &actorID
	}
	c.Status = next
	return nil
}

// LockClaimByCode loads a claim FOR UPDATE by its (normalised) code.
func LockClaimByCode(tx *gorm.DB, code string) (*Claim, error) {
	if tx == nil {
		tx = db.DB
	}

	var claim Claim
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&claim, "code = ?", NormalizeClaimCode(code)).Error
	if err != nil {
		return nil, err
	}

	return &claim, nil
}

func LockClaimByOrderID(tx *gorm.DB, orderID int64) (*Claim, error) {
	if tx == nil {
		tx = db.DB
	}

	var claim Claim
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&claim, "order_id = ?", orderID).Error
	if err != nil {
		return nil, err
	}

	return &claim, nil
}

// ClaimCodeTaken reports whether a code is already assigned to some claim.
func ClaimCodeTaken(tx *gorm.DB, code string) (bool, error) {
	if tx == nil {
		tx = db.DB
	}

	var taken bool
	err := tx.Model(&Claim{}).
		Select("count(*) > 0").
		Where("code = ?", code).
		Scan(&taken).Error
	if err != nil {
		return true, logger.WrapError(err, "")
	}

	return taken, nil
}
