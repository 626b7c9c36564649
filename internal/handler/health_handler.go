package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health returns service liveness
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
		"time":   time.Now(),
	})
}
