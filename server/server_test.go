package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/callebjorkell/ic-card-reader/nfc"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server, *nfc.Session) {
	t.Helper()
	reader := nfc.NewSession(nfc.DefaultCatalog(time.Now()), nfc.WithDelay(nfc.NoDelay))
	srv := New(Config{Reader: reader})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Stop()
		ts.Close()
		reader.Close()
	})
	return ts, srv, reader
}

func call(t *testing.T, ts *httptest.Server, method, path, body string, out interface{}) int {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestReaderOverHTTP(t *testing.T) {
	ts, _, _ := newTestServer(t)

	var status StatusResponse
	assert.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/api/status", "", &status))
	assert.Equal(t, nfc.NotConnected, status.State)

	var cards []string
	assert.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/api/cards", "", &cards))
	assert.Equal(t, []string{"CARD001", "CARD002", "MYNUMBER001"}, cards)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusConflict, call(t, ts, http.MethodGet, "/api/card", "", &errResp))
	assert.Equal(t, "InvalidState", errResp.Kind)

	assert.Equal(t, http.StatusOK, call(t, ts, http.MethodPost, "/api/connect", "", &status))
	assert.Equal(t, nfc.Connected, status.State)

	assert.Equal(t, http.StatusNotFound, call(t, ts, http.MethodPost, "/api/cards/NOPE/insert", "", &errResp))
	assert.Equal(t, "NotFound", errResp.Kind)

	var card nfc.Card
	assert.Equal(t, http.StatusOK, call(t, ts, http.MethodPost, "/api/cards/CARD001/insert", "", &card))
	assert.Equal(t, "CARD001", card.ID)

	assert.Equal(t, http.StatusNoContent, call(t, ts, http.MethodPut, "/api/card/properties/LastAccess", `{"value": "X"}`, nil))
	assert.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/api/card", "", &card))
	assert.Equal(t, "X", card.Property("LastAccess"))

	var auth map[string]bool
	assert.Equal(t, http.StatusOK, call(t, ts, http.MethodPost, "/api/card/authenticate", `{"pin": "0000"}`, &auth))
	assert.True(t, auth["authenticated"])
	assert.Equal(t, http.StatusOK, call(t, ts, http.MethodPost, "/api/card/authenticate", `{"pin": "9"}`, &auth))
	assert.False(t, auth["authenticated"])
	assert.Equal(t, http.StatusBadRequest, call(t, ts, http.MethodPost, "/api/card/authenticate", `{`, &errResp))

	assert.Equal(t, http.StatusUnprocessableEntity, call(t, ts, http.MethodGet, "/api/mynumber", "", &errResp))
	assert.Equal(t, "TypeMismatch", errResp.Kind)

	assert.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/api/status", "", &status))
	assert.Equal(t, "CARD001", status.CardID)

	var removed StatusResponse
	assert.Equal(t, http.StatusOK, call(t, ts, http.MethodPost, "/api/card/remove", "", &removed))
	assert.Equal(t, nfc.CardRemoved, removed.State)
	assert.Empty(t, removed.CardID)
}

func TestQueuedRequestTimesOut(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	delay := nfc.DelayFunc(func(ctx context.Context, op nfc.Operation) error {
		if op == nfc.OpConnect {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
			}
		}
		return ctx.Err()
	})
	reader := nfc.NewSession(nfc.DefaultCatalog(time.Now()), nfc.WithDelay(delay))
	srv := New(Config{Reader: reader, OperationTimeout: 20 * time.Millisecond})
	ts := httptest.NewServer(srv.Handler())
	defer func() {
		srv.Stop()
		ts.Close()
		reader.Close()
	}()

	connected := make(chan error, 1)
	go func() { connected <- reader.Connect(context.Background()) }()
	<-started

	var errResp ErrorResponse
	assert.Equal(t, http.StatusServiceUnavailable, call(t, ts, http.MethodGet, "/api/card", "", &errResp))
	assert.Equal(t, "Unavailable", errResp.Kind)

	close(release)
	assert.NoError(t, <-connected)
	assert.Equal(t, nfc.Connected, reader.Status())
}

func TestMyNumberOverHTTP(t *testing.T) {
	ts, _, reader := newTestServer(t)
	require.Equal(t, http.StatusOK, call(t, ts, http.MethodPost, "/api/connect", "", nil))
	require.Equal(t, http.StatusOK, call(t, ts, http.MethodPost, "/api/cards/MYNUMBER001/insert", "", nil))
	require.Equal(t, nfc.CardInserted, reader.Status())

	var verified map[string]bool
	assert.Equal(t, http.StatusOK, call(t, ts, http.MethodPost, "/api/mynumber/pin", `{"pin": "1234"}`, &verified))
	assert.True(t, verified["verified"])

	var record nfc.MyNumberRecord
	assert.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/api/mynumber", "", &record))
	assert.Equal(t, "123456789012", record.MyNumber)
	assert.NotEmpty(t, record.Name)

	res, err := ts.Client().Get(ts.URL + "/api/mynumber/certificate")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/pkix-cert", res.Header.Get("Content-Type"))
	var buf bytes.Buffer
	buf.ReadFrom(res.Body)
	assert.Equal(t, 33, buf.Len())
}

func TestEventsOverWebSocket(t *testing.T) {
	ts, srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var hello struct {
		Type    string       `json:"type"`
		Payload HelloPayload `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, WSMessageTypeHello, hello.Type)
	assert.NotEmpty(t, hello.Payload.ClientID)
	assert.Equal(t, nfc.NotConnected, hello.Payload.Status.State)
	assert.Eventually(t, func() bool { return srv.clients.count() == 1 }, time.Second, 5*time.Millisecond)

	require.Equal(t, http.StatusOK, call(t, ts, http.MethodPost, "/api/connect", "", nil))
	require.Equal(t, http.StatusOK, call(t, ts, http.MethodPost, "/api/cards/CARD002/insert", "", nil))

	type event struct {
		Kind  string    `json:"kind"`
		State string    `json:"state"`
		Card  *nfc.Card `json:"card"`
	}
	var got []event
	for len(got) < 3 {
		var msg struct {
			Type    string `json:"type"`
			Payload event  `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, WSMessageTypeEvent, msg.Type)
		got = append(got, msg.Payload)
	}
	assert.Equal(t, "statusChanged", got[0].Kind)
	assert.Equal(t, "Connected", got[0].State)
	assert.Equal(t, "CardInserted", got[1].State)
	assert.Equal(t, "cardInserted", got[2].Kind)
	require.NotNil(t, got[2].Card)
	assert.Equal(t, "CARD002", got[2].Card.ID)
}

type fakeAnnouncement struct {
	port     int
	txt      []string
	shutdown bool
}

func (f *fakeAnnouncement) Shutdown() { f.shutdown = true }

func TestAnnounce(t *testing.T) {
	reader := nfc.NewSession(nfc.DefaultCatalog(time.Now()), nfc.WithDelay(nfc.NoDelay), nfc.WithName("Front desk"))
	defer reader.Close()

	tests := []struct {
		name         string
		stopFirst    bool
		wantShutdown bool
	}{
		{"running server keeps the announcement", false, false},
		{"announcement after stop is withdrawn", true, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := New(Config{Reader: reader})
			fake := &fakeAnnouncement{}
			srv.register = func(name string, port int, txt []string) (announcement, error) {
				assert.Equal(t, "Front desk", name)
				fake.port, fake.txt = port, txt
				return fake, nil
			}
			if tc.stopFirst {
				srv.Stop()
			}

			require.NoError(t, srv.announce(4711))
			assert.Equal(t, 4711, fake.port)
			assert.Contains(t, fake.txt, "reader=Front desk")
			assert.Equal(t, tc.wantShutdown, fake.shutdown)

			srv.Stop()
			assert.True(t, fake.shutdown)
		})
	}
}

func TestTxtRecords(t *testing.T) {
	records := txtRecords("Virtual IC Card Reader")
	assert.Contains(t, records, "reader=Virtual IC Card Reader")
	assert.Contains(t, records, "atr="+ATR)
	assert.Contains(t, records, "path=/ws")
}

func TestServeUntilStopped(t *testing.T) {
	reader := nfc.NewSession(nfc.DefaultCatalog(time.Now()), nfc.WithDelay(nfc.NoDelay))
	defer reader.Close()
	srv := New(Config{Reader: reader})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	url := "http://" + ln.Addr().String() + "/api/status"
	assert.Eventually(t, func() bool {
		res, err := http.Get(url)
		if err != nil {
			return false
		}
		res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	srv.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	srv.Stop()
}
