package microsim

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Types of control messages
const (
	MessageStep            = "STEP"
	MessageQueryRoutes     = "QUERY_ROUTES"
	MessageQueryVehicles   = "QUERY_VEHICLES"
	MessageCtrlRouteResult = "CTRL_ROUTE_RESULT"
	MessageRoutes          = "ROUTES"
	MessageVehicles        = "VEHICLES"
	MessageError           = "ERROR"
)

// ControlMessage is an envelope of every message sent over control websocket
type ControlMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StepPayload reports tick which has just been completed
type StepPayload struct {
	Tick int64 `json:"tick"`
}

// RouteResultPayload is controller's choice among route candidates of zone pair
type RouteResultPayload struct {
	Origin      ZoneID `json:"origin"`
	Destination ZoneID `json:"destination"`
	Choice      int    `json:"choice"`
}

// ErrorPayload describes rejected request
type ErrorPayload struct {
	Request string `json:"request"`
	Message string `json:"message"`
}

type controlClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func (c *controlClient) writer() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.WithFields(log.Fields{"client": c.id}).Warnf("Can't write control message: %s", err.Error())
		}
	}
}

// ControlServer exposes simulation to external controller: websocket for stepping and
// eco-routing decisions, plain HTTP for read-only queries
type ControlServer struct {
	sim      *Simulation
	router   *mux.Router
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[string]*controlClient
}

// NewControlServer prepares handlers for given simulation
func NewControlServer(sim *Simulation) *ControlServer {
	srv := &ControlServer{
		sim:      sim,
		router:   mux.NewRouter(),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  make(map[string]*controlClient),
	}
	srv.router.HandleFunc("/ws", srv.wsHandler).Methods("GET")
	srv.router.HandleFunc("/tick", srv.tickHandler).Methods("GET")
	srv.router.HandleFunc("/roads", srv.roadsHandler).Methods("GET")
	srv.router.HandleFunc("/vehicles", srv.vehiclesHandler).Methods("GET")
	srv.router.HandleFunc("/routes", srv.routesHandler).Methods("GET")
	return srv
}

// Handler returns HTTP handler serving every endpoint
func (srv *ControlServer) Handler() http.Handler {
	return srv.router
}

// ListenAndServe serves until context is cancelled
func (srv *ControlServer) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "Can't serve control server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func encodeMessage(msgType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't marshal %s payload", msgType)
	}
	return json.Marshal(ControlMessage{Type: msgType, Payload: raw})
}

func (srv *ControlServer) reply(c *controlClient, msgType string, payload interface{}) {
	msg, err := encodeMessage(msgType, payload)
	if err != nil {
		log.WithFields(log.Fields{"client": c.id}).Error(err)
		return
	}
	c.send <- msg
}

func (srv *ControlServer) replyError(c *controlClient, request string, err error) {
	srv.reply(c, MessageError, ErrorPayload{Request: request, Message: err.Error()})
}

func (srv *ControlServer) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("Can't upgrade control connection: %s", err.Error())
		return
	}
	c := &controlClient{id: uuid.New().String(), conn: conn, send: make(chan []byte, 128)}
	srv.mu.Lock()
	srv.clients[c.id] = c
	srv.mu.Unlock()
	log.WithFields(log.Fields{"client": c.id}).Info("Controller connected")
	go c.writer()

	defer func() {
		srv.mu.Lock()
		delete(srv.clients, c.id)
		srv.mu.Unlock()
		close(c.send)
		conn.Close()
		log.WithFields(log.Fields{"client": c.id}).Info("Controller disconnected")
	}()

	srv.reply(c, MessageRoutes, srv.sim.RouteTables())
	srv.reply(c, MessageStep, StepPayload{Tick: srv.sim.Tick()})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env ControlMessage
		if err := json.Unmarshal(data, &env); err != nil {
			srv.replyError(c, "", errors.Wrap(err, "Can't parse message"))
			continue
		}
		srv.handleMessage(context.Background(), c, env)
	}
}

func (srv *ControlServer) handleMessage(ctx context.Context, c *controlClient, env ControlMessage) {
	switch env.Type {
	case MessageStep:
		if err := srv.sim.Step(ctx); err != nil {
			srv.replyError(c, env.Type, err)
			return
		}
		srv.reply(c, MessageStep, StepPayload{Tick: srv.sim.Tick()})
	case MessageQueryRoutes:
		srv.reply(c, MessageRoutes, srv.sim.RouteTables())
	case MessageQueryVehicles:
		srv.reply(c, MessageVehicles, SnapshotToGeoJSON(srv.sim.Snapshot()))
	case MessageCtrlRouteResult:
		var results []RouteResultPayload
		if err := json.Unmarshal(env.Payload, &results); err != nil {
			var single RouteResultPayload
			if errSingle := json.Unmarshal(env.Payload, &single); errSingle != nil {
				srv.replyError(c, env.Type, errors.Wrap(err, "Can't parse route results"))
				return
			}
			results = []RouteResultPayload{single}
		}
		for _, res := range results {
			if err := srv.sim.SetRouteResult(res.Origin, res.Destination, res.Choice); err != nil {
				srv.replyError(c, env.Type, err)
			}
		}
	default:
		srv.replyError(c, env.Type, errors.Errorf("Unknown message type '%s'", env.Type))
	}
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warnf("Can't encode response: %s", err.Error())
	}
}

func (srv *ControlServer) tickHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StepPayload{Tick: srv.sim.Tick()})
}

func (srv *ControlServer) roadsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, RoadsToGeoJSON(srv.sim.Network()))
}

func (srv *ControlServer) vehiclesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, SnapshotToGeoJSON(srv.sim.Snapshot()))
}

func (srv *ControlServer) routesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, srv.sim.RouteTables())
}
