package handlers

import (
	"net/http"
	"time"

	"inventory-service/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// la autenticación del stream la hace el middleware JWT antes del upgrade
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	streamPingInterval = 30 * time.Second
	streamWriteWait    = 10 * time.Second
)

// StreamHandler envía los eventos del ledger por WebSocket
type StreamHandler struct {
	bus    events.Bus
	logger *zap.Logger
}

func NewStreamHandler(bus events.Bus, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		bus:    bus,
		logger: logger,
	}
}

// LedgerStream cada entrada, salida, restauración o alerta se reenvía como JSON
func (h *StreamHandler) LedgerStream(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "ledger_stream"))
	ctx := c.Request.Context()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Error actualizando a WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	feed, cancel, err := h.bus.Subscribe(ctx)
	if err != nil {
		logger.Error("Error suscribiendo al bus", zap.Error(err))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"))
		return
	}
	defer cancel()

	logger.Info("Conexión WebSocket establecida")

	// el cliente no envía datos; leer solo detecta el cierre
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-feed:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				logger.Warn("Error enviando evento", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-closed:
			logger.Info("Cliente WebSocket desconectado")
			return
		case <-ctx.Done():
			return
		}
	}
}
