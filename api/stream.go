package api

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abimbolaoige/KFM-Counsel-Chat/utils"
)

type subscribeFunc[T any] func(ctx context.Context, callback func([]T)) (func(), error)

// streamSnapshots relays full snapshots as server-sent events until the
// client goes away. Only the newest undelivered snapshot is kept, so a slow
// client skips intermediate states instead of blocking publishers.
func streamSnapshots[T any](c *gin.Context, event string, keepAlive time.Duration, subscribe subscribeFunc[T]) {
	ctx := c.Request.Context()
	updates := make(chan []T, 1)
	callback := func(items []T) {
		if items == nil {
			items = []T{}
		}
		// Deliveries to one subscriber are serialised by the broker.
		select {
		case <-updates:
		default:
		}
		updates <- items
	}

	unsubscribe, err := subscribe(ctx, callback)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case items := <-updates:
			c.SSEvent(event, items)
			return true
		case <-ticker.C:
			c.SSEvent("ping", "")
			return true
		}
	})
}
