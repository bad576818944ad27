package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"blogmsg/internal/constants"
	"blogmsg/internal/models"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server is the reference implementation of the messaging wire API. It backs
// local development and integration tests, and is authoritative for the
// rules the client only checks advisorily: the recall window, sender-only
// recall/resend, and resend-only-while-recalled.
type Server struct {
	router       *mux.Router
	logger       *logrus.Logger
	store        *Store
	cfg          models.ServerConfig
	server       *http.Server
	recallWindow time.Duration
	now          func() time.Time
}

func NewServer(store *Store, cfg models.ServerConfig, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Server{
		router:       mux.NewRouter(),
		logger:       logger,
		store:        store,
		cfg:          cfg,
		recallWindow: constants.RecallWindow,
		now:          time.Now,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)

	if s.cfg.UploadDir != "" {
		s.router.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.cfg.UploadDir))))
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(observability(s.logger))
	api.Use(s.authMiddleware)

	api.HandleFunc("/threads/{threadID}/messages", s.handleThreadMessages()).Methods(http.MethodGet)
	api.HandleFunc("/threads/{threadID}/read", s.handleMarkThreadRead()).Methods(http.MethodPost)
	api.HandleFunc("/messages", s.handleSendMessage()).Methods(http.MethodPost)
	api.HandleFunc("/messages/{messageID}/recall", s.handleRecallMessage()).Methods(http.MethodPost)
	api.HandleFunc("/messages/{messageID}/resend", s.handleResendMessage()).Methods(http.MethodPost)
	api.HandleFunc("/unread-count", s.handleUnreadCount()).Methods(http.MethodGet)
	api.HandleFunc("/upload/image", s.handleUpload(kindImage)).Methods(http.MethodPost)
	api.HandleFunc("/upload/file", s.handleUpload(kindFile)).Methods(http.MethodPost)
}

// Handler exposes the router, used by httptest in integration tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	s.logger.Infof("Starting dev server on port %d", s.cfg.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}
