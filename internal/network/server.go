// Package network serves the game over HTTP: the websocket endpoint with its
// token gate, the account API, the QR share image and the static client.
package network

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Fullann/Slither.io/internal/auth"
	"github.com/Fullann/Slither.io/internal/config"
	"github.com/Fullann/Slither.io/internal/protocol"
	"github.com/Fullann/Slither.io/internal/room"
	"github.com/Fullann/Slither.io/internal/store"
)

// Server wires HTTP routes to the room, auth service and store.
type Server struct {
	ctx      context.Context
	cfg      *config.Config
	room     *room.Room
	auth     *auth.Service
	db       *store.DB
	hub      *Hub
	log      *slog.Logger
	upgrader websocket.Upgrader

	qrOnce sync.Once
	qrPNG  []byte
	qrErr  error
}

// New creates a server. ctx bounds the lifetime of every client connection.
func New(ctx context.Context, cfg *config.Config, rm *room.Room, authSvc *auth.Service, db *store.DB, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ctx:  ctx,
		cfg:  cfg,
		room: rm,
		auth: authSvc,
		db:   db,
		hub:  NewHub(cfg.Server.MaxConns, cfg.Server.MaxConnsPerIP),
		log:  logger.With("component", "http"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   4096,
		EnableCompression: true,
		CheckOrigin:       s.checkOrigin,
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /qr", s.handleQR)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Static files with no-cache so browsers always revalidate
	fs := http.FileServer(http.Dir(s.cfg.Server.StaticDir))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		fs.ServeHTTP(w, r)
	}))

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweep(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.auth.Sweep()
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ident, err := s.auth.ValidateToken(tokenFrom(r))
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrMissingToken) && s.cfg.Auth.AllowGuests:
		ident = auth.Identity{}
	default:
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	ip := extractIP(r)
	if !s.hub.Acquire(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.hub.Release(ip)
		s.log.Debug("upgrade failed", "ip", ip, "err", err)
		return
	}
	ws.EnableWriteCompression(true)

	format := protocol.ParseFormat(r.URL.Query().Get("fmt"))
	c := newClient(ws, s.room, s.hub, ip, format, s.cfg.Net, s.log)
	if err := s.room.Send(s.ctx, room.Attach{Conn: c, UserID: ident.UserID, Username: ident.Username}); err != nil {
		s.hub.Release(ip)
		ws.Close()
		return
	}
	s.log.Info("client connected", "conn", c.ID(), "user", ident.UserID, "format", format.String())

	go c.WritePump()
	go c.ReadPump(s.ctx)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.Server.AllowAnyOrigin {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // Non-browser clients don't send Origin
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// tokenFrom reads the JWT from ?token= or an Authorization: Bearer header.
func tokenFrom(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
