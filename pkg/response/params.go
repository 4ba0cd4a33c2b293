package response

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParamID parses a positive integer path parameter, writing 400 when it is malformed.
func ParamID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
