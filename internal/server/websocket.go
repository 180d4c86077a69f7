package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/franckalain/freshness/internal/metrics"
	"github.com/franckalain/freshness/internal/models"
)

// wsMessage is the envelope for every client message
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type wsPredictData struct {
	Image string `json:"image"`
	Fruit string `json:"fruit"`
	Item  string `json:"item"`
	Date  string `json:"date"`
}

// clientSet tracks live connections so shutdown can close them
type clientSet struct {
	conns sync.Map
}

func (c *clientSet) add(id string, conn *websocket.Conn) {
	c.conns.Store(id, conn)
	metrics.WebsocketClients.Inc()
}

func (c *clientSet) remove(id string) {
	if _, ok := c.conns.LoadAndDelete(id); ok {
		metrics.WebsocketClients.Dec()
	}
}

func (c *clientSet) closeAll() {
	c.conns.Range(func(key, value any) bool {
		value.(*websocket.Conn).Close()
		return true
	})
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket.upgrade.failed")
		return
	}
	defer conn.Close()

	// base64 inflates the image by 4/3
	conn.SetReadLimit(s.opts.MaxUploadBytes/3*4 + 4096)

	clientID := uuid.New().String()
	s.clients.add(clientID, conn)
	defer s.clients.remove(clientID)

	ctx := log.NewContext(r.Context(), log.WithField("client_id", clientID))
	log.FromContext(ctx).Debug("websocket.connected")

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.FromContext(ctx).WithError(err).Warn("websocket.read.failed")
			}
			break
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.sendError(ctx, conn, "Invalid message format")
			continue
		}

		s.handleWebSocketMessage(ctx, conn, msg)
	}
}

func (s *Server) handleWebSocketMessage(ctx context.Context, conn *websocket.Conn, msg wsMessage) {
	switch msg.Type {
	case "predict":
		s.handleWSPredict(ctx, conn, msg.Data)
	case "items":
		s.sendMessage(ctx, conn, "items", s.pipeline.Catalog().Items())
	case "":
		s.sendError(ctx, conn, "Invalid message format")
	default:
		s.sendError(ctx, conn, "Unknown message type")
	}
}

func (s *Server) handleWSPredict(ctx context.Context, conn *websocket.Conn, raw json.RawMessage) {
	var data wsPredictData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.sendError(ctx, conn, "Invalid predict payload")
		return
	}

	item := data.Fruit
	if item == "" {
		item = data.Item
	}
	if item == "" {
		s.sendError(ctx, conn, "No fruit selected")
		return
	}

	uploadDate, err := parseDate(data.Date)
	if err != nil {
		s.sendError(ctx, conn, err.Error())
		return
	}

	imageData, err := base64.StdEncoding.DecodeString(data.Image)
	if err != nil {
		s.sendError(ctx, conn, "Invalid image data")
		return
	}

	report, err := s.pipeline.Predict(ctx, models.PredictionRequest{
		Image:      imageData,
		ItemID:     item,
		UploadDate: uploadDate,
	})
	if err != nil {
		_, msg := errorStatus(err)
		s.sendError(ctx, conn, msg)
		return
	}

	s.sendMessage(ctx, conn, "prediction", report)
}

func (s *Server) sendMessage(ctx context.Context, conn *websocket.Conn, messageType string, data any) {
	msg := map[string]any{
		"type": messageType,
		"data": data,
	}

	if err := conn.WriteJSON(msg); err != nil {
		log.FromContext(ctx).WithError(err).Warn("websocket.send.failed")
	}
}

func (s *Server) sendError(ctx context.Context, conn *websocket.Conn, message string) {
	msg := map[string]any{
		"type":    "error",
		"message": message,
	}

	if err := conn.WriteJSON(msg); err != nil {
		log.FromContext(ctx).WithError(err).Warn("websocket.send_error.failed")
	}
}
