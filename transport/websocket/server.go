package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/duopair/gameroom-backend/internal/apperror"
	"github.com/duopair/gameroom-backend/internal/entity"
	"github.com/gorilla/websocket"
)

const shutdownTimeout = 5 * time.Second

type coordinator interface {
	Connect(ctx context.Context) (*entity.Connection, error)
	Disconnect(ctx context.Context, connectionID string) error

	RequestJoin(ctx context.Context, connectionID, roomToken string) error
	RelayTurn(ctx context.Context, connectionID string, board json.RawMessage, nextTurn string, winLine json.RawMessage) error
}

type Server struct {
	logger   *slog.Logger
	coord    coordinator
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client

	handlers map[string]func(ctx context.Context, connectionID string, payload json.RawMessage) error
}

func New(logger *slog.Logger) *Server {
	return &Server{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*client),
	}
}

// Bind attaches the coordinator and builds the action table. The server and
// the coordinator reference each other, so binding happens after both exist.
func (that *Server) Bind(coord coordinator) {
	that.coord = coord

	that.handlers = map[string]func(context.Context, string, json.RawMessage) error{
		actionCheckURL:     that.handleCheckURL,
		actionSendTurnData: that.handleSendTurnData,
	}
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.ServeWS)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}

		return nil
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}
}

// ServeWS upgrades the request and drives the connection's lifecycle: one
// read loop in this goroutine, one write pump alongside it.
func (that *Server) ServeWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeWS")

	wsConn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn, err := that.coord.Connect(req.Context())
	if err != nil {
		log.Error("failed to register connection", "error", err)
		_ = wsConn.Close()

		return
	}

	log = log.With("connectionID", conn.ID)

	cl := newClient(wsConn)

	that.mu.Lock()
	that.clients[conn.ID] = cl
	that.mu.Unlock()

	log.Info("WebSocket connection established")

	go cl.writePump()

	that.readLoop(req.Context(), conn.ID, cl)

	that.mu.Lock()
	delete(that.clients, conn.ID)
	that.mu.Unlock()

	cl.shutdown()

	// The request context dies with the socket; cleanup still has to run.
	if err = that.coord.Disconnect(context.WithoutCancel(req.Context()), conn.ID); err != nil {
		log.Error("failed to clean up connection", "error", err)
	}
}

// readLoop - processes messages from the client.
func (that *Server) readLoop(ctx context.Context, connectionID string, cl *client) {
	log := that.logger.With("method", "readLoop", "connectionID", connectionID)

	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("connection closed unexpectedly", "error", err)
			}

			return
		}

		var message Message
		if err = json.Unmarshal(raw, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Error("unknown action", "action", message.Action)
			continue
		}

		if err = handler(ctx, connectionID, message.Payload); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// Send queues an event for one connection. It implements the coordinator's
// Sender; a slow or vanished connection yields an error the coordinator
// logs and moves past.
func (that *Server) Send(connectionID, event string, payload any) error {
	that.mu.RLock()
	cl, ok := that.clients[connectionID]
	that.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrConnectionNotFound, connectionID)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message, err := json.Marshal(Message{Action: event, Payload: raw})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err = cl.queue(message); err != nil {
		return fmt.Errorf("failed to queue message: %w", err)
	}

	return nil
}
