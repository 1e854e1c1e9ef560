package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"camtrigger/internal/recorder"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16 // クライアントごとの未送信イベントの上限
)

// client は1つのWebSocket接続と送信待ちのイベント
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub は録画イベントをWebSocketクライアントに配信する
// 送信はクライアントごとのゴルーチンが行い、Publish はブロックしない
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub は新しいHubを作成する
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeWS はWebSocket接続を確立してクライアントを登録する
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket接続の確立に失敗: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

// Publish はイベントを全クライアントの送信キューに積む
// キューが溢れたクライアントは切断する
func (h *Hub) Publish(e recorder.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("イベントのシリアライズに失敗: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Println("送信が追いつかないWebSocketクライアントを切断します")
			h.unregister(c)
		}
	}
}

// Clients は接続中のクライアント数を返す
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close は全ての接続を閉じ、以降の接続を拒否する
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		h.unregister(c)
	}
}

// writePump は送信キューのイベントを順に書き込む
// キューが閉じられたら Close メッセージを送って接続を閉じる
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			for range c.send {
			}
			return
		}
	}

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(time.Second))
}

// readPump はクライアントからのメッセージを読み捨て、切断を検出する
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregister(c)
}

// unregister は h.mu を保持した状態で呼ぶ
func (h *Hub) unregister(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}
