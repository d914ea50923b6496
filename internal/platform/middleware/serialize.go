package middleware

import (
	"sync"

	"github.com/labstack/echo/v4"
)

// Serialize runs handlers one at a time under mu. The record store and the
// selection coordinator are single-threaded; every route that touches them
// must sit behind this middleware, and nothing else may take mu while a
// handler holds it.
func Serialize(mu *sync.Mutex) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			mu.Lock()
			defer mu.Unlock()
			return next(c)
		}
	}
}
