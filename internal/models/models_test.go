package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMailAccount_SyncDue(t *testing.T) {
	now := time.Now()
	past := now.Add(-30 * time.Minute)
	recent := now.Add(-5 * time.Minute)

	account := MailAccount{Enabled: true, SyncFrequency: 15}
	assert.True(t, account.SyncDue(now), "never-synced account is due")

	account.LastSyncedAt = &past
	assert.True(t, account.SyncDue(now))

	account.LastSyncedAt = &recent
	assert.False(t, account.SyncDue(now))

	account.Enabled = false
	account.LastSyncedAt = &past
	assert.False(t, account.SyncDue(now), "disabled accounts are never due")
}

func TestAccountToken_Expired(t *testing.T) {
	now := time.Now()

	token := AccountToken{}
	assert.False(t, token.Expired(now), "tokens without expiry never expire")

	future := now.Add(time.Hour)
	token.ExpiresAt = &future
	assert.False(t, token.Expired(now))

	// Inside the safety margin counts as expired.
	soon := now.Add(time.Minute)
	token.ExpiresAt = &soon
	assert.True(t, token.Expired(now))

	past := now.Add(-time.Minute)
	token.ExpiresAt = &past
	assert.True(t, token.Expired(now))
}

func TestAccountToken_HasRefreshToken(t *testing.T) {
	token := AccountToken{}
	assert.False(t, token.HasRefreshToken())

	token.RefreshTokenCipher = "deadbeef"
	assert.True(t, token.HasRefreshToken())
}
