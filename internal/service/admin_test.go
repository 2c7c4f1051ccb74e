package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"BPIApi/internal/models"
	"BPIApi/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminStatsCached(t *testing.T) {
	conn := testutil.SetupDB(t)
	mem := newMemoryCache()
	useOptions(t, Options{Cache: mem})
	admin := testutil.CreateUser(t, conn, "boss", nil)
	member := testutil.CreateUser(t, conn, "member", nil)
	require.NoError(t, conn.Model(member).Update("activated", true).Error)
	_, err := AllocateRevenue(conn, models.SourceMembership, 1, 1000)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/stats", asUser(admin), GetAdminStats)

	w := doJSON(r, "GET", "/stats", nil)
	require.Equal(t, 200, w.Code)

	var stats AdminStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Users)
	assert.Equal(t, int64(1), stats.ActiveMembers)
	assert.InDelta(t, 300, stats.PendingPools[models.PoolExecutive], 0.0001)

	testutil.CreateUser(t, conn, "late", nil)
	w = doJSON(r, "GET", "/stats", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Users, "served from cache")

	invalidateAdminStats(context.Background())
	w = doJSON(r, "GET", "/stats", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(3), stats.Users)
}

func TestShareholderPercentCapped(t *testing.T) {
	conn := testutil.SetupDB(t)
	useOptions(t, Options{})
	admin := testutil.CreateUser(t, conn, "boss", nil)
	a := testutil.CreateUser(t, conn, "exec1", nil)
	b := testutil.CreateUser(t, conn, "exec2", nil)

	r := gin.New()
	r.POST("/shareholders", asUser(admin), AdminCreateShareholder)
	r.PUT("/shareholders/:id", asUser(admin), AdminUpdateShareholder)

	w := doJSON(r, "POST", "/shareholders", gin.H{"user_id": a.ID, "title": "CEO", "percent": 70})
	require.Equal(t, 201, w.Code, w.Body.String())
	var holder models.ExecutiveShareholder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &holder))

	w = doJSON(r, "POST", "/shareholders", gin.H{"user_id": b.ID, "title": "COO", "percent": 40})
	assert.Equal(t, 400, w.Code)

	w = doJSON(r, "POST", "/shareholders", gin.H{"user_id": b.ID, "title": "COO", "percent": 40, "active": false})
	assert.Equal(t, 201, w.Code, "inactive holders do not count")

	w = doJSON(r, "PUT", fmt.Sprintf("/shareholders/%d", holder.ID), gin.H{"title": "CEO", "percent": 60})
	assert.Equal(t, 400, w.Code, "user_id is required on update too")

	w = doJSON(r, "PUT", fmt.Sprintf("/shareholders/%d", holder.ID), gin.H{"user_id": a.ID, "title": "CEO", "percent": 60})
	assert.Equal(t, 200, w.Code)

	holders, err := models.GetActiveShareholders(nil)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.InDelta(t, 60, holders[0].Percent, 0.0001)
}

func TestAdminSetUserRole(t *testing.T) {
	conn := testutil.SetupDB(t)
	useOptions(t, Options{})
	admin := testutil.CreateUser(t, conn, "boss", nil)
	clerk := testutil.CreateUser(t, conn, "clerk", nil)
	center := createCenter(t, conn, "Yaba")

	r := gin.New()
	r.PUT("/users/:id/role", asUser(admin), AdminSetUserRole)
	path := fmt.Sprintf("/users/%d/role", clerk.ID)

	w := doJSON(r, "PUT", path, gin.H{"role": "PICKUP_STAFF"})
	assert.Equal(t, 400, w.Code, "staff need a center")

	w = doJSON(r, "PUT", path, gin.H{"role": "PICKUP_STAFF", "pickup_center_id": center.ID})
	require.Equal(t, 200, w.Code, w.Body.String())
	reloaded := reloadUser(t, conn, clerk.ID)
	assert.Equal(t, models.RolePickupStaff, reloaded.Role)
	require.NotNil(t, reloaded.PickupCenterID)

	w = doJSON(r, "PUT", path, gin.H{"role": "USER"})
	require.Equal(t, 200, w.Code)
	assert.Nil(t, reloadUser(t, conn, clerk.ID).PickupCenterID)

	w = doJSON(r, "PUT", path, gin.H{"role": "ROOT"})
	assert.Equal(t, 400, w.Code)
}
