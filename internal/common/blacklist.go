package common

import (
	"github.com/boltdb/bolt"

	"github.com/influo/influo/config"
	"github.com/influo/influo/misc"
)

type BlacklistEntry struct {
	UserId    string `json:"userId"`
	BlockedId string `json:"blockedId"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

func blacklistKey(a, b string) string {
	return a + ":" + b
}

// IsBlacklisted checks both directions; a block by either side kills the
// pair
func IsBlacklisted(db *bolt.DB, cfg *config.Config, a, b string) bool {
	var found bool
	db.View(func(tx *bolt.Tx) error {
		bucket := misc.GetBucket(tx, cfg.Bucket.Blacklist)
		if bucket.Get([]byte(blacklistKey(a, b))) != nil || bucket.Get([]byte(blacklistKey(b, a))) != nil {
			found = true
		}
		return nil
	})
	return found
}

func AddBlacklistTx(tx *bolt.Tx, cfg *config.Config, entry *BlacklistEntry) error {
	return misc.PutTxJson(tx, cfg.Bucket.Blacklist, blacklistKey(entry.UserId, entry.BlockedId), entry)
}

func RemoveBlacklistTx(tx *bolt.Tx, cfg *config.Config, userId, blockedId string) error {
	return misc.DelBucketBytes(tx, cfg.Bucket.Blacklist, blacklistKey(userId, blockedId))
}
