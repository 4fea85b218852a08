package handlers

import (
	"github.com/ethpandaops/tactix/pkg/jobs"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// JobAccepted is the response of POST /api/v1/jobs
type JobAccepted struct {
	ID string `json:"id"`
}

// CreateJob handles POST /api/v1/jobs. The job is validated, normalized and pushed the
// same way producers push.
func (s *Server) CreateJob(c fiber.Ctx) error {
	entry, err := jobs.Decode(string(c.Body()))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	raw, err := entry.Job.Encode()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := s.broker.Push(c.Context(), raw); err != nil {
		s.log.WithError(err).Warn("Failed to enqueue job")

		return ErrBrokerUnavailable
	}

	id := jobs.NewID(raw)

	s.log.WithFields(logrus.Fields{
		"job_id":  id,
		"set_id":  entry.Job.SetID,
		"user_id": entry.Job.UserID,
	}).Info("Job enqueued")

	return c.Status(fiber.StatusAccepted).JSON(JobAccepted{ID: id})
}
