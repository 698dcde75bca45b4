package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v5"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Error: msg})
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, msg)
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, msg)
}

func writeConflict(c *echo.Context, msg string) error {
	return writeError(c, http.StatusConflict, msg)
}

type nodeNotFoundError struct {
	key string
}

func (e *nodeNotFoundError) Error() string {
	return fmt.Sprintf("node %q not found", e.key)
}
