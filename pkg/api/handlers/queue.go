package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// QueueStats is the response of GET /api/v1/queue
type QueueStats struct {
	Queue    string `json:"queue"`
	Pending  int64  `json:"pending"`
	InFlight int64  `json:"inFlight"`
}

// GetQueue handles GET /api/v1/queue
func (s *Server) GetQueue(c fiber.Ctx) error {
	pending, err := s.broker.Depth(c.Context())
	if err != nil {
		s.log.WithError(err).Warn("Failed to read pending depth")

		return ErrBrokerUnavailable
	}

	inFlight, err := s.broker.InFlight(c.Context())
	if err != nil {
		s.log.WithError(err).Warn("Failed to read in-flight depth")

		return ErrBrokerUnavailable
	}

	return c.Status(fiber.StatusOK).JSON(QueueStats{
		Queue:    s.queueName,
		Pending:  pending,
		InFlight: inFlight,
	})
}
