// Package service exposes the metrics of a running node over HTTP.
//
// stdout belongs to the protocol, so this listener is the only way to look at
// a node from the outside while it runs. It is optional and only started when
// a metrics address is configured.
package service

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/mosaicnetworks/glomers/src/telemetry"
	"github.com/mosaicnetworks/glomers/src/version"
	"github.com/sirupsen/logrus"
)

// Service ...
type Service struct {
	sync.Mutex

	bindAddress string
	nodeID      string
	mux         *http.ServeMux
	server      *http.Server
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering metrics handlers")
	s.mux.Handle("/metrics", telemetry.Instrument("metrics", telemetry.MetricsHandler()))
	s.mux.Handle("/healthz", telemetry.Instrument("healthz", s.makeHandler(s.GetHealth)))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// SetNodeID records the id the node received in its handshake, for /healthz.
func (s *Service) SetNodeID(id string) {
	s.Lock()
	defer s.Unlock()
	s.nodeID = id
}

// Handler returns the router of the service.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call. It returns nil once
// Close has been called.
func (s *Service) Serve() error {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving metrics")

	s.Lock()
	s.server = &http.Server{Addr: s.bindAddress, Handler: s.mux}
	server := s.server
	s.Unlock()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	if err != nil {
		s.logger.Error(err)
	}
	return err
}

// Close stops the listener started by Serve.
func (s *Service) Close() error {
	s.Lock()
	defer s.Unlock()
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}

// GetHealth reports the version and the node id, once known.
func (s *Service) GetHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]string{
		"status":  "ok",
		"version": version.Version,
		"node":    s.nodeID,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.WithError(err).Error("Encoding health")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
