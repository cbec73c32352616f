package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/yoralex/video-transcribe/internal/services"
	"github.com/yoralex/video-transcribe/internal/utils"
)

// WSHandler streams job progress events (chunk progress, status
// transitions) to clients over a websocket. Workers publish the events
// to redis pub/sub; this handler only relays.
type WSHandler struct {
	jobs     services.JobService
	redis    *redis.Client
	upgrader websocket.Upgrader
}

func NewWSHandler(jobs services.JobService, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		jobs:  jobs,
		redis: rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) JobEvents(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	jobID := c.Param("job_id")
	if jobID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.JobEvents", "missing job_id", nil))
		return
	}

	owner := userID
	if isAdmin(c) {
		owner = ""
	}
	// authorize job ownership before upgrading
	if _, err := h.jobs.Get(c.Request.Context(), owner, jobID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote a response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx, services.JobEventChannel(jobID))
	defer pubsub.Close()

	// reader: consume control frames, detect close
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(1 << 10)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, rerr := conn.ReadMessage(); rerr != nil {
				return
			}
		}
	}()

	// writer: Redis Pub/Sub -> WS
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		default:
			m, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				return
			}
			// forward as-is (payload is JSON published by the worker)
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}
