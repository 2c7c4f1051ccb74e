package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"BPIApi/internal/models"
	"BPIApi/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	authorized := r.Group("/", AuthMiddleware())
	authorized.GET("/me", func(c *gin.Context) {
		id, err := GetUserIDFromGinContext(c)
		if err != nil {
			c.Status(500)
			return
		}
		c.JSON(200, gin.H{"id": id, "role": GetRoleFromGinContext(c)})
	})
	authorized.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(204)
	})
	return r
}

func TestTokenRoundTrip(t *testing.T) {
	key := []byte("secret")
	token, err := TokenNew(key, 42, time.Now().Add(time.Minute), TokenRefresh)
	require.NoError(t, err)

	claims, err := TokenCheck(token, key)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, TokenRefresh, claims.TokenType)

	_, err = TokenCheck(token, []byte("other"))
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	key := []byte("secret")
	token, err := TokenNew(key, 1, time.Now().Add(-time.Minute), TokenAccess)
	require.NoError(t, err)

	_, err = TokenCheck(token, key)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	conn := testutil.SetupDB(t)
	InitAuth("test-secret")
	user := testutil.CreateUser(t, conn, "ada", nil)
	router := newAuthRouter()

	access, refresh, err := SignTokens(user.ID, time.Hour, 2*time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"USER"`)

	// refresh tokens cannot be used as access tokens
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, 401, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, 401, w.Code)
}

func TestAuthMiddlewareUnknownUser(t *testing.T) {
	testutil.SetupDB(t)
	InitAuth("test-secret")

	access, _, err := SignTokens(999, time.Hour, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	newAuthRouter().ServeHTTP(w, req)
	assert.Equal(t, 401, w.Code)
}

func TestRequireRole(t *testing.T) {
	conn := testutil.SetupDB(t)
	InitAuth("test-secret")
	user := testutil.CreateUser(t, conn, "plain", nil)
	admin := testutil.CreateUser(t, conn, "boss", nil)
	require.NoError(t, conn.Model(admin).Update("role", models.RoleAdmin).Error)
	router := newAuthRouter()

	for _, tc := range []struct {
		userID int64
		code   int
	}{
		{user.ID, 403},
		{admin.ID, 204},
	} {
		access, _, err := SignTokens(tc.userID, time.Hour, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, tc.code, w.Code)
	}
}

func TestComparePasswords(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.True(t, ComparePasswords(hash, "s3cret!"))
	assert.False(t, ComparePasswords(hash, "s3cret"))
}
