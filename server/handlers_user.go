package server

import (
	"errors"
	"time"

	"github.com/boltdb/bolt"
	"github.com/gin-gonic/gin"

	"github.com/influo/influo/internal/auth"
	"github.com/influo/influo/internal/common"
	"github.com/influo/influo/misc"
)

type signUpPayload struct {
	auth.User
	Password string `json:"password"`
}

func signUp(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload signUpPayload
		if err := misc.BindJSON(c, &payload); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		u := payload.User
		if u.Scope == auth.AdminScope {
			// Admins get created out of band
			misc.AbortWithErr(c, 400, auth.ErrInvalidScope)
			return
		}

		// New accounts want pings on by default
		u.OfferPing = true
		u.ApplicationPing = true

		if err := srv.auth.SignUp(&u, payload.Password); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		misc.WriteJSON(c, 200, misc.StatusOK(u.ID))
	}
}

type signInPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func signIn(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload signInPayload
		if err := misc.BindJSON(c, &payload); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		l, stok, err := srv.auth.SignIn(payload.Email, payload.Password)
		if err != nil {
			misc.AbortWithErr(c, 401, err)
			return
		}

		c.Header(auth.TokenHeader, stok)
		misc.WriteJSON(c, 200, misc.StatusOK(l.UserID))
	}
}

func signOut(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := srv.auth.SignOut(c.GetHeader(auth.TokenHeader)); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}
		misc.WriteJSON(c, 200, misc.StatusOK(""))
	}
}

func getUser(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := srv.auth.GetUser(c.Param("id"))
		if u == nil {
			misc.AbortWithErr(c, 404, errors.New("user not found"))
			return
		}
		misc.WriteJSON(c, 200, u)
	}
}

// putUser lets a user edit their own profile; scope and email stay fixed
func putUser(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		var upd auth.User
		if err := misc.BindJSON(c, &upd); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		if upd.Name != "" {
			cu.Name = upd.Name
		}
		cu.OfferPing = upd.OfferPing
		cu.ApplicationPing = upd.ApplicationPing

		if err := srv.auth.SaveUser(cu); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}
		misc.WriteJSON(c, 200, misc.StatusOK(cu.ID))
	}
}

func postBlacklist(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		var entry common.BlacklistEntry
		if err := misc.BindJSON(c, &entry); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		entry.UserId = cu.ID
		if entry.BlockedId == "" || entry.BlockedId == cu.ID {
			misc.AbortWithErr(c, 400, errors.New("invalid blocked id"))
			return
		}
		entry.CreatedAt = time.Now().Unix()

		if err := srv.db.Update(func(tx *bolt.Tx) error {
			return common.AddBlacklistTx(tx, srv.Cfg, &entry)
		}); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}
		misc.WriteJSON(c, 200, misc.StatusOK(entry.BlockedId))
	}
}

func delBlacklist(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)
		blockedId := c.Param("id")

		if err := srv.db.Update(func(tx *bolt.Tx) error {
			return common.RemoveBlacklistTx(tx, srv.Cfg, cu.ID, blockedId)
		}); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}
		misc.WriteJSON(c, 200, misc.StatusOK(blockedId))
	}
}
