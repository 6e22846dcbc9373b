package handler

import (
	"strconv"

	"storefront-be/internal/utils"

	"github.com/gin-gonic/gin"
)

func pathID(c *gin.Context) (uint, bool) {
	id, err := utils.ToUint(c.Param("id"))
	if err != nil || id == 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// queryInt returns 0 for a missing parameter.
func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, "invalid "+key)
		return 0, false
	}
	return n, true
}

func currentUser(c *gin.Context) (uint, bool) {
	return utils.GetUserIDFromContext(c.Request.Context())
}
