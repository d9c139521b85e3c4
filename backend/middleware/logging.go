package middleware

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LoggingMiddleware пишет строку на каждый запрос через общий логгер
// приложения. Метку времени ставит сам логгер (LstdFlags), здесь только
// метод, путь, статус, длительность и клиент.
func LoggingMiddleware(logger *log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// Ошибка еще не прошла через ErrorHandler, статус берем из нее
		status := c.Response().StatusCode()
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}

		logger.Printf("%s %s -> %d (%s) from %s",
			c.Method(), c.Path(), status, time.Since(start).Round(time.Microsecond), c.IP())

		return err
	}
}
