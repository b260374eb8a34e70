package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/jewellery_backend/config"
	"google.golang.org/api/idtoken"
)

// PubSubPushAuth says how push requests from Pub/Sub are authenticated.
// With Audience set the subscription must send an OIDC token for that
// audience (and for ServiceAccount when set). Otherwise the push endpoint
// URL must carry ?token=<Token>.
type PubSubPushAuth struct {
	Token          string
	Audience       string
	ServiceAccount string
}

func PubSubPushAuthFromEnv() PubSubPushAuth {
	return PubSubPushAuth{
		Token:          config.EnvDefault("PUBSUB_PUSH_TOKEN", ""),
		Audience:       config.EnvDefault("PUBSUB_PUSH_AUDIENCE", ""),
		ServiceAccount: config.EnvDefault("PUBSUB_PUSH_SERVICE_ACCOUNT", ""),
	}
}

func (a PubSubPushAuth) Configured() bool {
	return a.Token != "" || a.Audience != ""
}

var validateIDToken = idtoken.Validate

// PubSubPushMiddleware rejects push requests that fail auth. When nothing
// is configured every request is rejected.
func PubSubPushMiddleware(auth PubSubPushAuth) gin.HandlerFunc {
	logger := config.GetLogger()
	return func(c *gin.Context) {
		if !auth.Configured() {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if auth.Audience != "" {
			raw := c.Request.Header.Get("Authorization")
			if !strings.HasPrefix(raw, "Bearer ") {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			payload, err := validateIDToken(c.Request.Context(), raw[len("Bearer "):], auth.Audience)
			if err != nil {
				logger.WithError(err).Warn("pubsub push token rejected")
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			if auth.ServiceAccount != "" {
				email, _ := payload.Claims["email"].(string)
				verified, _ := payload.Claims["email_verified"].(bool)
				if email != auth.ServiceAccount || !verified {
					c.AbortWithStatus(http.StatusForbidden)
					return
				}
			}
			c.Next()
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.Query("token")), []byte(auth.Token)) != 1 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
