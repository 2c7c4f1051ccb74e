package models_test

import (
	"testing"

	"BPIApi/internal/models"
	"BPIApi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSponsorChainStopsAtFourLevels(t *testing.T) {
	conn := testutil.SetupDB(t)

	// u0 <- u1 <- u2 <- u3 <- u4 <- u5
	users := []*models.User{testutil.CreateUser(t, conn, "u0", nil)}
	for i := 1; i <= 5; i++ {
		parent := users[i-1]
		users = append(users, testutil.CreateUser(t, conn, "u"+string(rune('0'+i)), &parent.ID))
	}

	chain, err := models.GetSponsorChain(nil, users[5].ID)
	require.NoError(t, err)
	require.Len(t, chain, models.MaxReferralLevels)

	for i, a := range chain {
		assert.Equal(t, i+1, a.Level)
		assert.Equal(t, users[4-i].ID, a.User.ID)
	}
}

func TestGetSponsorChainHaltsAtMissingSponsor(t *testing.T) {
	conn := testutil.SetupDB(t)

	root := testutil.CreateUser(t, conn, "root", nil)
	mid := testutil.CreateUser(t, conn, "mid", &root.ID)
	orphanSponsor := int64(999999)
	orphan := testutil.CreateUser(t, conn, "orphan", &orphanSponsor)
	leaf := testutil.CreateUser(t, conn, "leaf", &orphan.ID)

	chain, err := models.GetSponsorChain(nil, mid.ID)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, root.ID, chain[0].User.ID)

	chain, err = models.GetSponsorChain(nil, leaf.ID)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, orphan.ID, chain[0].User.ID)

	chain, err = models.GetSponsorChain(nil, root.ID)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestGetDownlineGroupsByLevel(t *testing.T) {
	conn := testutil.SetupDB(t)

	root := testutil.CreateUser(t, conn, "root", nil)
	a := testutil.CreateUser(t, conn, "a", &root.ID)
	testutil.CreateUser(t, conn, "b", &root.ID)
	aa := testutil.CreateUser(t, conn, "aa", &a.ID)
	aaa := testutil.CreateUser(t, conn, "aaa", &aa.ID)
	aaaa := testutil.CreateUser(t, conn, "aaaa", &aaa.ID)
	testutil.CreateUser(t, conn, "aaaaa", &aaaa.ID)

	levels, err := models.GetDownline(nil, root.ID)
	require.NoError(t, err)
	require.Len(t, levels, 4)

	assert.Equal(t, 2, levels[0].Count)
	assert.Equal(t, 1, levels[1].Count)
	assert.Equal(t, 1, levels[2].Count)
	assert.Equal(t, 1, levels[3].Count)
	assert.Equal(t, aaaa.ID, levels[3].Users[0].ID)
}

func TestGetUserByReferralCode(t *testing.T) {
	conn := testutil.SetupDB(t)
	sponsor := testutil.CreateUser(t, conn, "sponsor", nil)

	found, err := models.GetUserByReferralCode(nil, " refsponsor ")
	require.NoError(t, err)
	assert.Equal(t, sponsor.ID, found.ID)

	_, err = models.GetUserByReferralCode(nil, "NOPE")
	assert.ErrorIs(t, err, models.ErrSponsorNotFound)
}
