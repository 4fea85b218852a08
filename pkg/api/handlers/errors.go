package handlers

import "github.com/gofiber/fiber/v3"

// ErrBrokerUnavailable is returned when the queue cannot be reached
var ErrBrokerUnavailable = fiber.NewError(fiber.StatusServiceUnavailable, "queue unavailable")
