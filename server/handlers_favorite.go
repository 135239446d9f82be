package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/boltdb/bolt"
	"github.com/gin-gonic/gin"

	"github.com/influo/influo/internal/auth"
	"github.com/influo/influo/internal/common"
	"github.com/influo/influo/misc"
)

// postFavorite saves a card to the user's favorites. The (user, target)
// pair is the storage key, so a duplicate is naturally rejected inside the
// write transaction.
func postFavorite(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		var f common.Favorite
		if err := misc.BindJSON(c, &f); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		f.UserId = cu.ID
		f.CreatedAt = time.Now().Unix()

		if err := f.Check(); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		if err := srv.db.Update(func(tx *bolt.Tx) (err error) {
			bucket := misc.GetBucket(tx, srv.Cfg.Bucket.Favorite)
			if bucket.Get([]byte(f.Key())) != nil {
				return common.ErrDupFavorite
			}
			if f.Id, err = misc.GetNextIndex(tx, srv.Cfg.Bucket.Favorite); err != nil {
				return err
			}
			return misc.PutTxJson(tx, srv.Cfg.Bucket.Favorite, f.Key(), &f)
		}); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		misc.WriteJSON(c, 200, misc.StatusOK(f.Id))
	}
}

func delFavorite(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		var f common.Favorite
		if err := misc.BindJSON(c, &f); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}
		f.UserId = cu.ID

		if err := f.Check(); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		if err := srv.db.Update(func(tx *bolt.Tx) error {
			bucket := misc.GetBucket(tx, srv.Cfg.Bucket.Favorite)
			if bucket.Get([]byte(f.Key())) == nil {
				return errors.New("not in favorites")
			}
			return bucket.Delete([]byte(f.Key()))
		}); err != nil {
			misc.AbortWithErr(c, 404, err)
			return
		}

		misc.WriteJSON(c, 200, misc.StatusOK(f.TargetId))
	}
}

func getFavorites(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		favs := make([]*common.Favorite, 0, 16)
		srv.db.View(func(tx *bolt.Tx) error {
			return misc.GetBucket(tx, srv.Cfg.Bucket.Favorite).ForEach(func(k, v []byte) error {
				var f common.Favorite
				if json.Unmarshal(v, &f) != nil {
					return nil
				}
				if f.UserId == cu.ID {
					favs = append(favs, &f)
				}
				return nil
			})
		})

		misc.WriteJSON(c, 200, favs)
	}
}
