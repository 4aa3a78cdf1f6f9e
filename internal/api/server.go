package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"chessclub/internal/broadcast"
	"chessclub/internal/room"
	"chessclub/pkg/types"
)

// ArchiveReader serves archived move history for the REST surface.
type ArchiveReader interface {
	RoomHistory(ctx context.Context, roomID string, limit int) ([]types.MoveRecord, error)
}

// WebSocketHandler terminates websocket upgrade requests.
type WebSocketHandler interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

// Server exposes the read-only REST surface and the websocket endpoint.
type Server struct {
	engine  *room.Engine
	gateway *broadcast.Gateway
	archive ArchiveReader
	router  *gin.Engine
}

func NewServer(engine *room.Engine, gateway *broadcast.Gateway, archive ArchiveReader, wsHandler WebSocketHandler, allowedOrigins []string) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
		},
	}))

	server := &Server{
		engine:  engine,
		gateway: gateway,
		archive: archive,
		router:  router,
	}

	router.GET("/health", server.health)
	router.GET("/api/rooms", server.listRooms)
	router.GET("/api/rooms/:id", server.roomSnapshot)
	router.GET("/api/rooms/:id/archive", server.roomArchive)
	router.GET("/ws", func(c *gin.Context) {
		wsHandler.HandleWebSocket(c.Writer, c.Request)
	})

	return server
}

// Handler returns the assembled HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"rooms":       len(s.engine.Rooms()),
		"subscribers": s.gateway.Stats(),
	})
}

func (s *Server) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": s.engine.Rooms()})
}

func (s *Server) roomSnapshot(c *gin.Context) {
	roomID := c.Param("id")
	if !types.IsValidID(roomID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room identifier"})
		return
	}

	snapshot, err := s.engine.Snapshot(roomID)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) roomArchive(c *gin.Context) {
	roomID := c.Param("id")
	if !types.IsValidID(roomID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room identifier"})
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	records, err := s.archive.RoomHistory(c.Request.Context(), roomID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "moves": records})
}
