package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"GemRushApi/internal/middleware"
	"GemRushApi/internal/service"
	"GemRushApi/pkg/logger"
	"GemRushApi/pkg/redis"
)

const apiPrefix = "api/"

func Start() {
	gin.DisableConsoleColor()

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	authorized := router.Group("/", middleware.AuthMiddleware())

	// Redis is optional; the recent-results feed falls back to the database.
	var redisService *redis.RedisService
	if addr, ok := os.LookupEnv("REDIS_ADDR"); ok {
		redisService = redis.NewRedisService(addr, os.Getenv("REDIS_PASSWORD"))
	}

	rouletteWS := service.NewRouletteWebsocketService(redisService)
	clock := service.NewRouletteClock(service.LoadRoulettePhaseConfig(), rouletteWS)
	if err := clock.Resume(); err != nil {
		logger.Fatal("Failed to resume roulette round: %v", err)
	}
	service.RouletteGame = clock

	// Start the roulette round loop in a separate goroutine
	go service.SuperviseRoulette(clock)

	// router
	{
		router.POST(apiPrefix+"users/auth/signup", service.SignUp)
		router.POST(apiPrefix+"users/auth", service.AuthLogin)

		router.GET(apiPrefix+"health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":    "ok",
				"last_tick": clock.LastTick(),
			})
		})
	}

	// authorized
	{
		// users
		authorized.GET(apiPrefix+"users", service.GetUser)

		// roulette
		authorized.GET(apiPrefix+"games/roulette/state", service.GetRouletteState)
		authorized.POST(apiPrefix+"games/roulette/place", service.PlaceRouletteBet)
		authorized.GET(apiPrefix+"games/roulette/history", service.GetRouletteBetHistory)
		authorized.GET(apiPrefix+"games/roulette/info", service.GetRouletteWheelInfo)
		authorized.GET(apiPrefix+"games/roulette/results/recent", rouletteWS.GetRecentResults)

		// Roulette WebSocket routes
		authorized.GET(apiPrefix+"ws/roulette/live", rouletteWS.LiveRouletteWebsocketHandler)

		// admin
		authorized.POST(apiPrefix+"admin/roulette/newround", service.ForceRouletteRound)
	}

	srv := &http.Server{
		Addr:    ":8080",
		Handler: router.Handler(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with
	// a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server Shutdown: %v", err)
	}

	<-ctx.Done()
	logger.Info("Server exiting")
}
