// Package handlers implements the admin API request handlers.
package handlers

import (
	"github.com/ethpandaops/tactix/pkg/queue"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// Server holds the dependencies of the API handlers
type Server struct {
	broker    queue.Broker
	queueName string
	log       logrus.FieldLogger
}

// NewServer creates a new API server instance
func NewServer(broker queue.Broker, queueName string, log logrus.FieldLogger) *Server {
	return &Server{
		broker:    broker,
		queueName: queueName,
		log:       log.WithField("component", "api.handlers"),
	}
}

// RegisterRoutes mounts every handler on router
func (s *Server) RegisterRoutes(router fiber.Router) {
	router.Get("/queue", s.GetQueue)
	router.Post("/jobs", s.CreateJob)
}
