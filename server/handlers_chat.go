package server

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/boltdb/bolt"
	"github.com/gin-gonic/gin"

	"github.com/influo/influo/internal/auth"
	"github.com/influo/influo/internal/common"
	"github.com/influo/influo/misc"
)

// chatParticipant checks the caller belongs to the offer's thread
func (srv *Server) chatParticipant(c *gin.Context, offerId string) *common.Offer {
	o := common.GetOffer(offerId, srv.db, srv.Cfg)
	if o == nil {
		misc.AbortWithErr(c, 404, errOfferNotFound)
		return nil
	}
	cu := auth.GetCtxUser(c)
	if o.InfluencerId != cu.ID && o.AdvertiserId != cu.ID && !cu.IsAdmin() {
		misc.AbortWithErr(c, 401, errNotYours)
		return nil
	}
	return o
}

func postChatMessage(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		o := srv.chatParticipant(c, c.Param("offerId"))
		if o == nil {
			return
		}
		cu := auth.GetCtxUser(c)

		var msg common.ChatMessage
		if err := misc.BindJSON(c, &msg); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		msg.OfferId = o.Id
		msg.SenderId = cu.ID
		msg.SentAt = time.Now().Unix()

		if err := msg.Check(); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		msg.Id = misc.PseudoUUID()
		if err := srv.db.Update(func(tx *bolt.Tx) error {
			return misc.PutTxJson(tx, srv.Cfg.Bucket.Chat, msg.Id, &msg)
		}); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}

		misc.WriteJSON(c, 200, misc.StatusOK(msg.Id))
	}
}

func getChatMessages(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		o := srv.chatParticipant(c, c.Param("offerId"))
		if o == nil {
			return
		}

		msgs := make([]*common.ChatMessage, 0, 16)
		srv.db.View(func(tx *bolt.Tx) error {
			return misc.GetBucket(tx, srv.Cfg.Bucket.Chat).ForEach(func(k, v []byte) error {
				var msg common.ChatMessage
				if json.Unmarshal(v, &msg) != nil {
					return nil
				}
				if msg.OfferId == o.Id {
					msgs = append(msgs, &msg)
				}
				return nil
			})
		})

		sort.Slice(msgs, func(i, j int) bool { return msgs[i].SentAt < msgs[j].SentAt })

		misc.WriteJSON(c, 200, msgs)
	}
}
