package microsim

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readControlMessage(t *testing.T, conn *websocket.Conn) ControlMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg ControlMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readStep(t *testing.T, conn *websocket.Conn) int64 {
	t.Helper()
	msg := readControlMessage(t, conn)
	require.Equal(t, MessageStep, msg.Type)
	var step StepPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &step))
	return step.Tick
}

func newControlFixture(t *testing.T) (*Simulation, *httptest.Server) {
	t.Helper()
	sim := newZonedGrid(t, map[ZoneID]int{1: 2, 9: 2}, NewMemoryCollector(), nil)
	require.Equal(t, 2, sim.BuildRouteTable())
	srv := httptest.NewServer(NewControlServer(sim).Handler())
	t.Cleanup(srv.Close)
	return sim, srv
}

func TestControlServerWebsocket(t *testing.T) {
	sim, srv := newControlFixture(t)
	_, err := sim.AddTaxi(1)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := readControlMessage(t, conn)
	require.Equal(t, MessageRoutes, msg.Type)
	var routes []RouteCandidates
	require.NoError(t, json.Unmarshal(msg.Payload, &routes))
	require.Len(t, routes, 2)
	assert.Equal(t, ODPair{Origin: 1, Destination: 9}, routes[0].ODPair)
	assert.Equal(t, int64(0), readStep(t, conn))

	require.NoError(t, conn.WriteJSON(ControlMessage{Type: MessageStep}))
	assert.Equal(t, int64(1), readStep(t, conn))
	assert.Equal(t, int64(1), sim.Tick())

	payload, err := json.Marshal(RouteResultPayload{Origin: 1, Destination: 9, Choice: 0})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ControlMessage{Type: MessageCtrlRouteResult, Payload: payload}))
	payload, err = json.Marshal([]RouteResultPayload{{Origin: 1, Destination: 9, Choice: 100}})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ControlMessage{Type: MessageCtrlRouteResult, Payload: payload}))
	msg = readControlMessage(t, conn)
	require.Equal(t, MessageError, msg.Type, "only invalid choice is answered")
	var failure ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &failure))
	assert.Equal(t, MessageCtrlRouteResult, failure.Request)

	require.NoError(t, conn.WriteJSON(ControlMessage{Type: MessageQueryVehicles}))
	msg = readControlMessage(t, conn)
	require.Equal(t, MessageVehicles, msg.Type)
	fc, err := geojson.UnmarshalFeatureCollection(msg.Payload)
	require.NoError(t, err)
	assert.Empty(t, fc.Features, "parked taxi is off road")

	require.NoError(t, conn.WriteJSON(ControlMessage{Type: "DANCE"}))
	msg = readControlMessage(t, conn)
	assert.Equal(t, MessageError, msg.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg = readControlMessage(t, conn)
	assert.Equal(t, MessageError, msg.Type)
}

func TestControlServerHTTP(t *testing.T) {
	sim, srv := newControlFixture(t)

	resp, err := http.Get(srv.URL + "/tick")
	require.NoError(t, err)
	var step StepPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&step))
	resp.Body.Close()
	assert.Equal(t, sim.Tick(), step.Tick)

	resp, err = http.Get(srv.URL + "/roads")
	require.NoError(t, err)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	fc := geojson.NewFeatureCollection()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(fc))
	resp.Body.Close()
	assert.Len(t, fc.Features, sim.Network().NumRoads())

	resp, err = http.Get(srv.URL + "/routes")
	require.NoError(t, err)
	var routes []RouteCandidates
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&routes))
	resp.Body.Close()
	assert.Len(t, routes, 2)

	resp, err = http.Post(srv.URL+"/tick", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
