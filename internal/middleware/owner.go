package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-quiz/backend/pkg/response"
)

// RequireOwner aborts with 403 unless the authenticated user is ownerID.
// It returns false when the request was aborted.
func RequireOwner(c *gin.Context, ownerID int64, resource string) bool {
	uid, ok := UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		c.Abort()
		return false
	}
	if uid != ownerID {
		response.Forbidden(c, "not allowed to act on "+resource)
		c.Abort()
		return false
	}
	return true
}
