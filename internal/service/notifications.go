package service

import (
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"

	"github.com/gin-gonic/gin"
)

func GetNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	notifications, err := models.ListUserNotifications(nil, userID, c.Query("unread") == "true")
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, notifications)
}

type markReadInput struct {
	IDs []int64 `json:"ids"`
}

// MarkNotificationsRead marks the listed notifications, or all when none are listed.
func MarkNotificationsRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input markReadInput
	if !bindJSON(c, &input) {
		return
	}

	if err := models.MarkNotificationsRead(nil, userID, input.IDs); err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.Status(204)
}
