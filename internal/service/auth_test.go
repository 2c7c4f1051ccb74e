package service

import (
	"encoding/json"
	"testing"

	"BPIApi/internal/models"
	"BPIApi/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authRouter() *gin.Engine {
	r := gin.New()
	r.POST("/signup", SignUp)
	r.POST("/login", Login)
	r.POST("/refresh", RefreshTokens)
	return r
}

func TestSignUpWithSponsorLink(t *testing.T) {
	conn := testutil.SetupDB(t)
	useOptions(t, Options{})
	sponsor := testutil.CreateUser(t, conn, "leader", nil)
	r := authRouter()

	w := doJSON(r, "POST", "/signup?ref="+sponsor.ReferralCode, gin.H{
		"email":    "New.Member@Example.com",
		"username": "newmember",
		"password": "s3cret-pass",
	})
	require.Equal(t, 201, w.Code, w.Body.String())

	var token Token
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &token))
	assert.NotEmpty(t, token.AccessToken)
	assert.NotEmpty(t, token.RefreshToken)
	require.NotNil(t, token.User)
	assert.Equal(t, "new.member@example.com", token.User.Email)
	require.NotNil(t, token.User.SponsorID)
	assert.Equal(t, sponsor.ID, *token.User.SponsorID)
	assert.Len(t, token.User.ReferralCode, 8)

	var referral models.Referral
	require.NoError(t, conn.Where("referred_id = ?", token.User.ID).First(&referral).Error)
	assert.Equal(t, sponsor.ID, referral.ReferrerID)
	assert.Equal(t, models.ReferralPending, referral.Status)

	w = doJSON(r, "POST", "/signup", gin.H{
		"email":    "other@example.com",
		"username": "NewMember",
		"password": "s3cret-pass",
	})
	assert.Equal(t, 409, w.Code)

	w = doJSON(r, "POST", "/signup", gin.H{
		"email":         "third@example.com",
		"username":      "third",
		"password":      "s3cret-pass",
		"referral_code": "NOPE0000",
	})
	assert.Equal(t, 400, w.Code)

	w = doJSON(r, "POST", "/login", gin.H{"login": "NEWMEMBER", "password": "s3cret-pass"})
	assert.Equal(t, 200, w.Code)

	w = doJSON(r, "POST", "/login", gin.H{"login": "newmember", "password": "wrong-pass"})
	assert.Equal(t, 401, w.Code)

	w = doJSON(r, "POST", "/refresh", gin.H{"refresh_token": token.RefreshToken})
	assert.Equal(t, 200, w.Code)

	w = doJSON(r, "POST", "/refresh", gin.H{"refresh_token": token.AccessToken})
	assert.Equal(t, 401, w.Code, "access token is not a refresh token")
}
