package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"camtrigger/internal/config"
	"camtrigger/internal/storage"
	"camtrigger/internal/supervisor"
)

// Controller はコマンドの実行と状態取得を提供する
type Controller interface {
	Submit(ctx context.Context, line string) (supervisor.Reply, error)
	Snapshot() supervisor.Snapshot
}

// ClipLister は保存済みクリップの一覧を提供する
type ClipLister interface {
	ListClips() ([]storage.Clip, error)
}

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     config.ServerConfig
	engine     *gin.Engine
	httpServer *http.Server
	hub        *Hub
}

// New は新しいServerインスタンスを作成する
func New(cfg config.ServerConfig, ctrl Controller, clips ClipLister, hub *Hub) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	h := &Handler{
		controller: ctrl,
		clips:      clips,
		hub:        hub,
	}
	h.register(engine)

	return &Server{
		config: cfg,
		engine: engine,
		hub:    hub,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler はルーティング済みのHTTPハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start はサーバーを起動し、ctx がキャンセルされるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	errCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Printf("HTTPサーバーを起動しています: %s", s.config.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	log.Println("HTTPサーバーをシャットダウンしています...")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.hub.Close()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	log.Println("HTTPサーバーが正常にシャットダウンされました")
	return nil
}
