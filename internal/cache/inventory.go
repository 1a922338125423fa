package cache

import (
	"context"
	"strconv"
	"time"

	"pinboard/internal/middleware"
)

// Key layout in Redis:
//
//	user:<id>                 cached profile row, ProfileTTL
//	session:revoked:<jti>     revoked session token, until the token expires
const (
	profilePrefix = "user:"
	revokedPrefix = "session:revoked:"
)

// ProfileTTL bounds how stale a cached profile can be if an invalidation
// is lost.
const ProfileTTL = 5 * time.Minute

// ProfileKey is the cache key of a user's profile row.
func ProfileKey(userID uint) string {
	return profilePrefix + strconv.FormatUint(uint64(userID), 10)
}

// RevokedSessionKey marks a session token id as logged out.
func RevokedSessionKey(tokenID string) string {
	return revokedPrefix + tokenID
}

// InvalidateProfile drops the cached profile of userID. It is called after
// every profile write; a failure only leaves the entry until ProfileTTL.
func InvalidateProfile(ctx context.Context, userID uint) {
	if client == nil {
		return
	}
	key := ProfileKey(userID)
	if err := client.Del(ctx, key).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "profile cache invalidation failed",
			"key", key, "error", err.Error())
	}
}
