package auth

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"

	"github.com/influo/influo/config"
	"github.com/influo/influo/misc"
)

const (
	TokenAge    = time.Hour * 6
	TokenLen    = 16
	TokenHeader = `x-auth-token`

	purgeFrequency = time.Hour * 24
)

type Auth struct {
	db  *bolt.DB
	cfg *config.Config
}

func New(db *bolt.DB, cfg *config.Config) *Auth {
	return &Auth{
		db:  db,
		cfg: cfg,
	}
}

type Token struct {
	UserID  string `json:"userID"`
	Expires int64  `json:"expires"`
}

func (t *Token) IsValid(ts time.Time) bool {
	return t.UserID != "" && (t.Expires == -1 || t.Expires > ts.UnixNano())
}

func (t *Token) Refresh(dur time.Duration) *Token {
	if t.Expires != -1 {
		t.Expires = time.Now().Add(dur).UnixNano()
	}
	return t
}

// PurgeInvalidTokens runs forever; call it in its own goroutine
func (a *Auth) PurgeInvalidTokens() {
	for {
		a.db.Update(func(tx *bolt.Tx) error {
			b := misc.GetBucket(tx, a.cfg.Bucket.Token)
			ts := time.Now()
			return b.ForEach(func(k, v []byte) error {
				var tok Token
				if json.Unmarshal(v, &tok) != nil || !tok.IsValid(ts) {
					b.Delete(k)
				}
				return nil
			})
		})

		time.Sleep(purgeFrequency)
	}
}

func (a *Auth) GetLoginTx(tx *bolt.Tx, email string) *Login {
	email = misc.TrimEmail(email)

	var l Login
	if misc.GetTxJson(tx, a.cfg.Bucket.Login, email, &l) == nil && l.UserID != "" {
		return &l
	}
	return nil
}

func (a *Auth) GetUserTx(tx *bolt.Tx, id string) *User {
	var u User
	if misc.GetTxJson(tx, a.cfg.Bucket.User, id, &u) == nil && u.ID != "" {
		return &u
	}
	return nil
}

func (a *Auth) GetUser(id string) (u *User) {
	a.db.View(func(tx *bolt.Tx) error {
		u = a.GetUserTx(tx, id)
		return nil
	})
	return
}

// SignUp creates the user and their login row in one transaction
func (a *Auth) SignUp(u *User, pass string) error {
	if err := u.Check(); err != nil {
		return err
	}

	hashed, err := HashPassword(pass)
	if err != nil {
		return err
	}

	u.Email = misc.TrimEmail(u.Email)

	return a.db.Update(func(tx *bolt.Tx) (err error) {
		if a.GetLoginTx(tx, u.Email) != nil {
			return ErrEmailExists
		}

		if u.ID, err = misc.GetNextIndex(tx, a.cfg.Bucket.User); err != nil {
			return err
		}
		u.CreatedAt = time.Now().Unix()

		if err = misc.PutTxJson(tx, a.cfg.Bucket.User, u.ID, u); err != nil {
			return err
		}
		return misc.PutTxJson(tx, a.cfg.Bucket.Login, u.Email, &Login{UserID: u.ID, Password: hashed})
	})
}

func (a *Auth) SignInTx(tx *bolt.Tx, email, pass string) (l *Login, stok string, err error) {
	if l = a.GetLoginTx(tx, email); l == nil {
		return nil, "", ErrInvalidEmail
	}
	if !CheckPassword(l.Password, pass) {
		return nil, "", ErrInvalidPass
	}
	stok = hex.EncodeToString(misc.CreateToken(TokenLen))
	ntok := &Token{UserID: l.UserID, Expires: time.Now().Add(TokenAge).UnixNano()}
	err = misc.PutTxJson(tx, a.cfg.Bucket.Token, stok, ntok)
	return
}

func (a *Auth) SignIn(email, pass string) (l *Login, stok string, err error) {
	a.db.Update(func(tx *bolt.Tx) error {
		l, stok, err = a.SignInTx(tx, email, pass)
		return nil
	})
	return
}

func (a *Auth) SignOut(stok string) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		return misc.GetBucket(tx, a.cfg.Bucket.Token).Delete([]byte(stok))
	})
}

// GetUserByToken resolves a session token, refreshing its expiry on use
func (a *Auth) GetUserByToken(stok string) (u *User) {
	if stok == "" {
		return nil
	}
	a.db.Update(func(tx *bolt.Tx) (_ error) {
		var token Token
		if misc.GetTxJson(tx, a.cfg.Bucket.Token, stok, &token) != nil || !token.IsValid(time.Now()) {
			return
		}
		if u = a.GetUserTx(tx, token.UserID); u != nil {
			misc.PutTxJson(tx, a.cfg.Bucket.Token, stok, token.Refresh(TokenAge))
		}
		return
	})
	return
}

func (a *Auth) SaveUser(u *User) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		u.UpdatedAt = time.Now().Unix()
		return misc.PutTxJson(tx, a.cfg.Bucket.User, u.ID, u)
	})
}
