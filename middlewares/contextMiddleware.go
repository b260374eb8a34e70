package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/jewellery_backend/appctx"
	"github.com/mmdatafocus/jewellery_backend/utils"
)

// CorrelationMiddleware reuses x-correlation-id when the caller sends one
// and generates it otherwise. The id is echoed in the response.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header("x-correlation-id", cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

// BranchMiddleware puts the installation's branch on every request context.
func BranchMiddleware(branch appctx.Branch) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(appctx.WithBranch(c.Request.Context(), branch))
		c.Next()
	}
}
