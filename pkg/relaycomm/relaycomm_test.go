package relaycomm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"air-firmware/pkg/camconfig"
	"air-firmware/pkg/config"
	"air-firmware/pkg/wifi"
)

type sent struct {
	Type    string
	Payload map[string]interface{}
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
}

func (f *fakeSender) Send(messageType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{Type: messageType, Payload: m})
	return nil
}

func (f *fakeSender) last(t *testing.T) sent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.msgs)
	return f.msgs[len(f.msgs)-1]
}

type fakeChanger struct {
	requested []int
	accept    bool
}

func (f *fakeChanger) RequestChange(value int) bool {
	f.requested = append(f.requested, value)
	return f.accept
}
func (f *fakeChanger) Current() camconfig.CamConfig { return camconfig.LibcameraIMX477 }
func (f *fakeChanger) State() string                { return camconfig.StateIdle }

type countingRebooter struct {
	ch chan struct{}
}

func (r countingRebooter) Reboot() { r.ch <- struct{}{} }

func TestHandleChangeCamConfig(t *testing.T) {
	out := &fakeSender{}
	changer := &fakeChanger{accept: true}
	h := &handlers{out: out, deps: Deps{CamConfig: changer}}

	h.handleChangeCamConfig(json.RawMessage(`{"id": 4}`))
	assert.Equal(t, []int{4}, changer.requested)
	assert.Equal(t, sent{"changeCamConfigResult", map[string]interface{}{"success": true}}, out.last(t))

	changer.accept = false
	h.handleChangeCamConfig(json.RawMessage(`{"id": 12}`))
	assert.Equal(t, false, out.last(t).Payload["success"])

	h.handleChangeCamConfig(json.RawMessage(`{}`))
	assert.Equal(t, []int{4, 12}, changer.requested, "missing id is not forwarded")
	assert.Equal(t, "Invalid request format", out.last(t).Payload["error"])
}

func TestHandleGetCamConfig(t *testing.T) {
	out := &fakeSender{}
	h := &handlers{out: out, deps: Deps{CamConfig: &fakeChanger{}}}

	h.handleGetCamConfig(nil)
	msg := out.last(t)
	assert.Equal(t, "camConfigResult", msg.Type)
	assert.Equal(t, float64(2), msg.Payload["id"])
	assert.Equal(t, "libcamera_imx477", msg.Payload["name"])
}

func TestHandleGetWifiCards(t *testing.T) {
	out := &fakeSender{}
	cards := []wifi.WiFiCard{{DeviceName: "wlan1", Type: wifi.Realtek8812au, Supports5GHz: true}}
	h := &handlers{out: out, deps: Deps{Cards: func() []wifi.WiFiCard { return cards }}}

	h.handleGetWifiCards(nil)
	msg := out.last(t)
	require.Equal(t, true, msg.Payload["success"])
	list := msg.Payload["cards"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "Realtek8812au", list[0].(map[string]interface{})["type"])
}

func TestHandleRestart(t *testing.T) {
	out := &fakeSender{}
	rebooter := countingRebooter{ch: make(chan struct{}, 1)}
	h := &handlers{out: out, deps: Deps{Rebooter: rebooter}}

	h.handleRestart(nil)
	assert.Equal(t, "restartResult", out.last(t).Type)
	select {
	case <-rebooter.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("reboot not requested")
	}
}

func TestDispatch(t *testing.T) {
	r := New()
	called := make(chan json.RawMessage, 1)
	r.On("ping", func(p json.RawMessage) { called <- p })

	assert.False(t, r.dispatch(Message{Type: "unknown"}))
	assert.True(t, r.dispatch(Message{Type: "ping", Payload: json.RawMessage(`{"a":1}`)}))
	select {
	case p := <-called:
		assert.JSONEq(t, `{"a":1}`, string(p))
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestStartRequiresURL(t *testing.T) {
	r := New()
	assert.Error(t, r.Start(""))
	assert.Error(t, r.Send("x", nil), "not connected")
}

func TestStopDuringDialDropsConnection(t *testing.T) {
	accepted := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		accepted <- conn
	}))
	defer srv.Close()

	r := New()
	r.running = true
	r.stopChan = make(chan struct{})
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	peer := <-accepted
	defer peer.Close()

	r.Stop()
	assert.False(t, r.adopt(conn))
	conn.Close()
	assert.Nil(t, r.conn)
	assert.Error(t, r.Send("x", nil), "not connected")

	r.running = true
	assert.True(t, r.adopt(conn))
	assert.Equal(t, conn, r.conn)
}

func TestRelayRoundTrip(t *testing.T) {
	require.NoError(t, config.Init(afero.NewMemMapFs()))

	replies := make(chan Message, 1)
	unitIDs := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		unitIDs <- req.URL.Query().Get("unitId")

		conn.WriteJSON(Message{Type: "changeCamConfig", Payload: json.RawMessage(`{"id": 1}`)})
		var reply Message
		if err := conn.ReadJSON(&reply); err == nil {
			replies <- reply
		}
	}))
	defer srv.Close()

	changer := &fakeChanger{accept: true}
	r := New()
	RegisterHandlers(r, Deps{CamConfig: changer})
	require.NoError(t, r.Start("ws"+strings.TrimPrefix(srv.URL, "http")))
	defer r.Stop()
	assert.Error(t, r.Start("ws://elsewhere"), "already running")

	select {
	case reply := <-replies:
		assert.Equal(t, "changeCamConfigResult", reply.Type)
		assert.JSONEq(t, `{"success": true}`, string(reply.Payload))
	case <-time.After(10 * time.Second):
		t.Fatal("no reply from unit")
	}
	assert.Equal(t, config.Get().GetString("id"), <-unitIDs)
}
