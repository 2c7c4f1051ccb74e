package service

import (
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	activityKey  = "bpi:activity:rewards"
	activityKeep = 50
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ActivityEvent is one public line of the live payout feed.
type ActivityEvent struct {
	Kind      string        `json:"kind"`
	Username  string        `json:"username"`
	Level     int           `json:"level,omitempty"`
	Wallet    models.Wallet `json:"wallet"`
	Amount    float64       `json:"amount"`
	Timestamp int64         `json:"timestamp"`
}

// pushActivity records events in Redis. Failures are logged and dropped, the
// feed is best effort.
func pushActivity(ctx context.Context, events ...ActivityEvent) {
	if cache == nil {
		return
	}
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Error("%v", logger.WrapError(err, ""))
			continue
		}
		if err = cache.PushRecent(ctx, activityKey, string(data), activityKeep); err != nil {
			logger.Error("%v", err)
			return
		}
	}
}

// fetchRecentActivity returns up to limit events, newest first.
func fetchRecentActivity(ctx context.Context, limit int64) ([]ActivityEvent, error) {
	events := []ActivityEvent{}
	if cache == nil {
		return events, nil
	}

	raw, err := cache.Recent(ctx, activityKey, limit)
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	for _, item := range raw {
		var ev ActivityEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			logger.Warn("skipping malformed activity entry: %v", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func GetRecentActivity(c *gin.Context) {
	events, err := fetchRecentActivity(c.Request.Context(), 20)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, events)
}

// LiveActivityWebsocketHandler streams new payout events once per second.
func LiveActivityWebsocketHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("%v", err)
		return
	}
	defer conn.Close()

	// the client never sends anything; reading detects the close frame
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	lastSent := time.Now().UnixNano()
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
		}

		events, err := fetchRecentActivity(context.Background(), 10)
		if err != nil {
			logger.Error("%v", err)
			return
		}

		// events are newest first; send the unseen ones oldest first
		for i := len(events) - 1; i >= 0; i-- {
			if events[i].Timestamp <= lastSent {
				continue
			}
			if err := conn.WriteJSON(events[i]); err != nil {
				logger.Debug("activity websocket closed: %v", err)
				return
			}
			lastSent = events[i].Timestamp
		}
	}
}
