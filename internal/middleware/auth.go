package middleware

import (
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	TokenAccess  = "TokenAccess"
	TokenRefresh = "TokenRefresh"
)

const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "user_role"
)

var (
	ErrMissingToken   = errors.New("missing bearer token")
	ErrWrongTokenType = errors.New("wrong token type")
)

var jwtKey []byte

// InitAuth sets the HMAC key used to sign and check tokens.
func InitAuth(secret string) {
	jwtKey = []byte(secret)
}

type Claims struct {
	UserID    int64  `json:"uid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenNew signs an HS256 token of tokenType for userID.
func TokenNew(key []byte, userID int64, expiration time.Time, tokenType string) (string, error) {
	claims := Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", logger.WrapError(err, "")
	}
	return signed, nil
}

// TokenCheck parses and validates a token, returning its claims.
func TokenCheck(token string, key []byte) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

// SignTokens issues an access/refresh pair.
func SignTokens(userID int64, accessTTL, refreshTTL time.Duration) (access, refresh string, err error) {
	now := time.Now()
	if access, err = TokenNew(jwtKey, userID, now.Add(accessTTL), TokenAccess); err != nil {
		return "", "", err
	}
	if refresh, err = TokenNew(jwtKey, userID, now.Add(refreshTTL), TokenRefresh); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// ParseToken checks a token signed with the configured key and its type.
func ParseToken(token, tokenType string) (*Claims, error) {
	claims, err := TokenCheck(token, jwtKey)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// GetTokenFromAuthorizationHeader reads the bearer token. Websocket clients
// cannot set headers from the browser, so they pass it as ?token=.
func GetTokenFromAuthorizationHeader(c *gin.Context) (string, error) {
	if c.IsWebsocket() {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
	}

	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := GetTokenFromAuthorizationHeader(c)
		if err != nil {
			c.JSON(401, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		claims, err := ParseToken(token, TokenAccess)
		if err != nil {
			logger.Debug("rejected token: %v", err)
			c.JSON(401, gin.H{"error": "User not authorized"})
			c.Abort()
			return
		}

		// the role is read from the database so demotions apply immediately
		role, err := models.GetUserRole(nil, claims.UserID)
		if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(401, gin.H{"error": "User not authorized"})
			c.Abort()
			return
		} else if err != nil {
			logger.Error("%v", err)
			c.AbortWithStatus(500)
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles.
// Must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRoleFromGinContext(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.JSON(403, gin.H{"error": "Forbidden"})
		c.Abort()
	}
}

func GetUserIDFromGinContext(c *gin.Context) (int64, error) {
	userIDAny, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, logger.WrapError(errors.New("user_id not in GIN context"), "")
	}

	userID, ok := userIDAny.(int64)
	if !ok {
		return 0, logger.WrapError(errors.New("unable to cast user_id value to int64"), "")
	}

	return userID, nil
}

func GetRoleFromGinContext(c *gin.Context) models.Role {
	role, _ := c.Get(ContextRoleKey)
	r, _ := role.(models.Role)
	return r
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", logger.WrapError(err, "")
	}
	return string(hash), nil
}

func ComparePasswords(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
