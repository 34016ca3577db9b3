package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status   string         `json:"status"`
	Error    string         `json:"error,omitempty"`
	Database databaseHealth `json:"database"`
}

type databaseHealth struct {
	AcquiredConns int32 `json:"acquired_conns"`
	IdleConns     int32 `json:"idle_conns"`
	MaxConns      int32 `json:"max_conns"`
}

// HealthHandler serves the liveness endpoint: a ping plus pool occupancy.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		stat := pool.Stat()
		resp := healthResponse{
			Status: "ok",
			Database: databaseHealth{
				AcquiredConns: stat.AcquiredConns(),
				IdleConns:     stat.IdleConns(),
				MaxConns:      stat.MaxConns(),
			},
		}

		if err := pool.Ping(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
		return c.JSON(http.StatusOK, resp)
	}
}
