package server

import (
	"net/http"

	"github.com/SpatiumPortae/tftcp/internal/conn"
	"github.com/SpatiumPortae/tftcp/internal/logger"
)

func (s *Server) routes() {
	s.router.Use(logger.Middleware(s.logger))
	s.router.HandleFunc("/ping", s.ping()).Methods(http.MethodGet)
	s.router.HandleFunc("/version", s.handleVersion()).Methods(http.MethodGet)
	s.router.Handle(conn.TransferPath, conn.Middleware()(s.handleTransfer()))
}

// Handler returns the admin HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}
