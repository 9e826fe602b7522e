package controllers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/almanac/almanacbackend/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// StatusInfo is what the status endpoints report on. PingDB is nil for the
// in-memory store. Redis is nil when rate limiting is off.
type StatusInfo struct {
	Env         string
	StoreDriver string
	DBName      string
	PingDB      func(ctx context.Context) error
	Redis       *redis.Client
	StartedAt   time.Time
}

func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func Ping() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	}
}

// GET /status/db
func DBStatus(info StatusInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		db := gin.H{"driver": info.StoreDriver, "name": info.DBName, "connected": true}
		if info.PingDB != nil {
			if err := info.PingDB(ctx); err != nil {
				db["connected"] = false
				db["error"] = err.Error()
			}
		}

		cache := gin.H{"enabled": info.Redis != nil}
		if info.Redis != nil {
			if err := info.Redis.Ping(ctx).Err(); err != nil {
				cache["connected"] = false
				cache["error"] = err.Error()
			} else {
				cache["connected"] = true
			}
		}

		status := http.StatusOK
		if db["connected"] == false {
			status = http.StatusServiceUnavailable
		}
		utils.Respond(c, status, "", gin.H{"database": db, "redis": cache})
	}
}

// GET /status/system
func SystemStatus(info StatusInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		utils.Respond(c, http.StatusOK, "system is operational", gin.H{
			"environment": info.Env,
			"storeDriver": info.StoreDriver,
			"goVersion":   runtime.Version(),
			"goroutines":  runtime.NumGoroutine(),
			"heapAllocMB": mem.HeapAlloc / (1 << 20),
			"uptime":      time.Since(info.StartedAt).Round(time.Second).String(),
		})
	}
}
