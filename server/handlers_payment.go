package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/boltdb/bolt"
	"github.com/gin-gonic/gin"

	"github.com/influo/influo/internal/auth"
	"github.com/influo/influo/internal/payments"
	"github.com/influo/influo/misc"
)

var errPaymentNotFound = errors.New("payment window not found")

func (srv *Server) getPaymentWindow(id string) *payments.Window {
	var w payments.Window
	if err := srv.db.View(func(tx *bolt.Tx) error {
		return misc.GetTxJson(tx, srv.Cfg.Bucket.Payment, id, &w)
	}); err != nil || w.Id == "" {
		return nil
	}
	return &w
}

func (srv *Server) savePaymentWindow(w *payments.Window) error {
	return srv.db.Update(func(tx *bolt.Tx) error {
		return misc.PutTxJson(tx, srv.Cfg.Bucket.Payment, w.Id, w)
	})
}

func postPaymentWindow(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		var w payments.Window
		if err := misc.BindJSON(c, &w); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		w.PayerId = cu.ID
		w.Status = payments.WindowPending
		w.History = nil

		if err := w.Check(); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		now := time.Now().Unix()
		w.CreatedAt, w.UpdatedAt = now, now

		if err := srv.db.Update(func(tx *bolt.Tx) (err error) {
			if w.Id, err = misc.GetNextIndex(tx, srv.Cfg.Bucket.Payment); err != nil {
				return err
			}
			return misc.PutTxJson(tx, srv.Cfg.Bucket.Payment, w.Id, &w)
		}); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}

		misc.WriteJSON(c, 200, misc.StatusOK(w.Id))
	}
}

// putPaymentWindow edits amounts and terms while the window is still
// pending; after that the status machine is the only way to move it
func putPaymentWindow(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		w := srv.getPaymentWindow(c.Param("id"))
		if w == nil {
			misc.AbortWithErr(c, 404, errPaymentNotFound)
			return
		}
		if w.PayerId != cu.ID && !cu.IsAdmin() {
			misc.AbortWithErr(c, 401, errNotYours)
			return
		}
		if !w.Editable() {
			misc.AbortWithErr(c, 400, payments.ErrNotEditable)
			return
		}

		var upd payments.Window
		if err := misc.BindJSON(c, &upd); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		w.PayeeId = upd.PayeeId
		w.OfferId = upd.OfferId
		w.Amount = upd.Amount
		w.Currency = upd.Currency
		w.PaymentType = upd.PaymentType
		w.CustomerId = upd.CustomerId

		if err := w.Check(); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}
		w.UpdatedAt = time.Now().Unix()

		if err := srv.savePaymentWindow(w); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}
		misc.WriteJSON(c, 200, misc.StatusOK(w.Id))
	}
}

type paymentStatusPayload struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// putPaymentStatus drives the window's status machine. Entering "paying"
// bills the payer's stored card when stripe is configured; a failed charge
// rolls the window to "failed" instead of leaving it stuck.
func putPaymentStatus(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		w := srv.getPaymentWindow(c.Param("id"))
		if w == nil {
			misc.AbortWithErr(c, 404, errPaymentNotFound)
			return
		}
		if w.PayerId != cu.ID && w.PayeeId != cu.ID && !cu.IsAdmin() {
			misc.AbortWithErr(c, 401, errNotYours)
			return
		}

		var payload paymentStatusPayload
		if err := misc.BindJSON(c, &payload); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		if err := w.Transition(payload.Status, payload.Note); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		if payload.Status == payments.WindowPaying && srv.Cfg.Stripe.Key != "" {
			if err := payments.Charge(w.CustomerId, w.Id, w.Amount); err != nil {
				w.Transition(payments.WindowFailed, err.Error())
			} else {
				w.Transition(payments.WindowPaid, "charge succeeded")
			}
		}

		if err := srv.savePaymentWindow(w); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}
		misc.WriteJSON(c, 200, w)
	}
}

func getPaymentWindows(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		windows := make([]*payments.Window, 0, 8)
		srv.db.View(func(tx *bolt.Tx) error {
			return misc.GetBucket(tx, srv.Cfg.Bucket.Payment).ForEach(func(k, v []byte) error {
				var w payments.Window
				if json.Unmarshal(v, &w) != nil {
					return nil
				}
				if w.PayerId == cu.ID || w.PayeeId == cu.ID || cu.IsAdmin() {
					windows = append(windows, &w)
				}
				return nil
			})
		})

		misc.WriteJSON(c, 200, windows)
	}
}
