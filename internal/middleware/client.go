package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ClientIDKey is the gin context key holding the browser's client id
const ClientIDKey = "client_id"

// ClientCookie configures the cookie identifying a browser
type ClientCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// ClientSession assigns every browser an opaque client id cookie. The id
// identifies the browser's session: it selects the access and refresh tokens
// held for it in the token store, so the cookie is HttpOnly and rotates only
// when missing or malformed.
func ClientSession(cookie ClientCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cookie.Name)
		if err != nil || !validClientID(id) {
			id = uuid.NewString()
		}

		// refresh the expiry on every visit
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookie.Name, id, int(cookie.TTL.Seconds()), "/", "", cookie.Secure, true)

		c.Set(ClientIDKey, id)
		c.Next()
	}
}

// ClientID returns the client id set by ClientSession
func ClientID(c *gin.Context) string {
	return c.GetString(ClientIDKey)
}

func validClientID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
