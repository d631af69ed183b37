package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const sessionTokenHeader = "X-Session-Token"

// более устойчиво к типам (int / int64 / float64 / string)
func getIntFromCtx(c *gin.Context, key string) (int, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n, true
		}
	}
	return 0, false
}

func getUserAndRole(c *gin.Context) (userID, roleID int) {
	if id, ok := getIntFromCtx(c, "user_id"); ok {
		userID = id
	}
	if id, ok := getIntFromCtx(c, "role_id"); ok {
		roleID = id
	}
	return
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// sessionToken: query ?sessionToken= или заголовок X-Session-Token.
func sessionTokenFrom(c *gin.Context) string {
	if t := strings.TrimSpace(c.Query("sessionToken")); t != "" {
		return t
	}
	return strings.TrimSpace(c.GetHeader(sessionTokenHeader))
}

// internalError: 500 без деталей; подробности только в лог.
func internalError(c *gin.Context, log *logrus.Logger, where string, err error, msg string) {
	rid, _ := c.Get("request_id")
	log.WithError(err).WithField("request_id", rid).Error(where)
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
