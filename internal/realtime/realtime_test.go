package realtime

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

type event struct {
	name    string
	payload string
}

func newPubSub(t *testing.T) *RedisPubSub {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisPubSub(rdb, nil)
}

func TestRedisPubSubDeliversPerQuiz(t *testing.T) {
	ps := newPubSub(t)
	got := make(chan event, 4)
	cancel, err := ps.SubscribeQuiz(7, func(name string, payload []byte) {
		got <- event{name, string(payload)}
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if err := ps.PublishQuizEvent(8, EventLeaderboard, []byte(`["other"]`)); err != nil {
		t.Fatalf("publish other: %v", err)
	}
	if err := ps.PublishQuizEvent(7, EventLeaderboard, []byte(`["mine"]`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case e := <-got:
		if e.name != EventLeaderboard || e.payload != `["mine"]` {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	select {
	case e := <-got:
		t.Fatalf("received event for another quiz: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestServeQuizStreamSendsSnapshotThenEvents(t *testing.T) {
	ps := newPubSub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeQuizStream(w, r, 3, func() (WSMessage, error) {
			return WSMessage{Event: EventLeaderboard, Data: []byte(`[]`)}, nil
		}, ps, nil)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if msg.Event != EventLeaderboard || string(msg.Data) != `[]` {
		t.Fatalf("unexpected snapshot %+v", msg)
	}

	if err := ps.PublishQuizEvent(3, EventLeaderboard, []byte(`[{"rank":1}]`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if string(msg.Data) != `[{"rank":1}]` {
		t.Fatalf("unexpected event data %s", msg.Data)
	}
}

// gapSubscriber records the handler so a test can deliver events at a chosen moment.
type gapSubscriber struct {
	mu      sync.Mutex
	handler func(event string, payload []byte)
}

func (g *gapSubscriber) SubscribeQuiz(quizID int64, handler func(event string, payload []byte)) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handler = handler
	return func() {}, nil
}

func (g *gapSubscriber) deliver(event, payload string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.handler == nil {
		return false
	}
	g.handler(event, []byte(payload))
	return true
}

func TestServeQuizStreamKeepsEventsPublishedDuringSnapshot(t *testing.T) {
	sub := &gapSubscriber{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeQuizStream(w, r, 5, func() (WSMessage, error) {
			if !sub.deliver(EventLeaderboard, `["during"]`) {
				t.Error("snapshot was taken before subscribing")
			}
			return WSMessage{Event: EventLeaderboard, Data: []byte(`["snapshot"]`)}, nil
		}, sub, nil)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	for _, want := range []string{`["snapshot"]`, `["during"]`} {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read %s: %v", want, err)
		}
		if string(msg.Data) != want {
			t.Fatalf("got %s, want %s", msg.Data, want)
		}
	}

	sub.deliver(EventLeaderboard, `["after"]`)
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil || string(msg.Data) != `["after"]` {
		t.Fatalf("live event: %v %s", err, msg.Data)
	}
}

func TestServeQuizStreamClosesWhenSnapshotFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeQuizStream(w, r, 5, func() (WSMessage, error) {
			return WSMessage{}, errors.New("store down")
		}, &gapSubscriber{}, nil)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseInternalServerErr) {
		t.Fatalf("expected internal error close, got %v", err)
	}
}

func TestChannel(t *testing.T) {
	if got := Channel(42); got != "quiz:42" {
		t.Fatalf("Channel(42) = %q", got)
	}
}
