package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/abrar71/swaggerfilesv2" // swagger embed files

	"signalrelay/internal/http/credentialhandler"
	"signalrelay/internal/services/turncred"
	"signalrelay/internal/ws"
)

type httpServer struct {
	srv     *http.Server
	credSvc turncred.ICredentialService
	hub     *ws.Hub
	wsSrv   *ws.WsServer
	ctx     context.Context
}

// NewHttpServer builds the server up front so Dispose is safe to call at any
// time, even before Start.
func NewHttpServer(ctx context.Context, listenPort uint16, hub *ws.Hub, wsSrv *ws.WsServer, credSvc turncred.ICredentialService) *httpServer {
	h := &httpServer{
		hub:     hub,
		wsSrv:   wsSrv,
		credSvc: credSvc,
		ctx:     ctx,
	}
	h.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", listenPort),
		Handler: h.Engine(),
	}
	return h
}

// Engine builds the gin router with every route the relay serves.
func (h *httpServer) Engine() *gin.Engine {
	routerEngine := gin.New()

	// Swagger UI and API specs
	routerEngine.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))
	routerEngine.Static("/api-specs", "api_specs")

	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// websocket endpoint
	routerEngine.GET("/ws", h.wsSrv.Handle)

	routerEngine.GET("/healthz", h.healthz)
	routerEngine.GET("/stats", h.stats)
	routerEngine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// TURN credential issuer
	ch := credentialhandler.New(h.credSvc)
	ch.Register(routerEngine)

	return routerEngine
}

// Start serves until Dispose. It returns nil once the server was shut down,
// including when Dispose ran first.
func (h *httpServer) Start() error {
	ln, err := net.Listen("tcp", h.srv.Addr)
	if err != nil {
		return err
	}
	zap.L().Info("http_listen", zap.String("addr", h.srv.Addr))

	err = h.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// @Summary		Liveness probe
// @Tags			Ops
// @Success		200	{object}	map[string]bool
// @Router			/healthz [get]
func (h *httpServer) healthz(ginCtx *gin.Context) {
	ginCtx.JSON(http.StatusOK, gin.H{"ok": true})
}

// @Summary		Room and peer counts
// @Tags			Ops
// @Success		200	{object}	ws.Stats
// @Router			/stats [get]
func (h *httpServer) stats(ginCtx *gin.Context) {
	ginCtx.JSON(http.StatusOK, h.hub.Stats())
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in‑flight requests to finish.
func (h *httpServer) Dispose() error {
	// Hijacked websocket connections are not tracked by Shutdown; they end
	// when the process exits.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err
	}

	if ctx.Err() == context.DeadlineExceeded {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
	}
	return nil
}
