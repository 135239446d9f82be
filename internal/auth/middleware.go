package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/influo/influo/misc"
)

const ctxUserKey = "ctxUser"

// VerifyUser requires a valid session token and stashes the user on the
// gin context
func (a *Auth) VerifyUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := a.GetUserByToken(c.GetHeader(TokenHeader))
		if u == nil {
			misc.AbortWithErr(c, 401, ErrUnauthorized)
			return
		}
		c.Set(ctxUserKey, u)
		c.Next()
	}
}

// CheckScope layers a scope requirement on top of VerifyUser; admins pass
// everything
func (a *Auth) CheckScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := GetCtxUser(c)
		if u == nil || (u.Scope != scope && !u.IsAdmin()) {
			misc.AbortWithErr(c, 401, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func GetCtxUser(c *gin.Context) *User {
	if v, ok := c.Get(ctxUserKey); ok {
		if u, ok := v.(*User); ok {
			return u
		}
	}
	return nil
}
