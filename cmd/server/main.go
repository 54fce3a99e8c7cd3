package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go-gin-atomic-tickets/config"
	"go-gin-atomic-tickets/internal/cache"
	"go-gin-atomic-tickets/internal/database"
	"go-gin-atomic-tickets/internal/handler"
	"go-gin-atomic-tickets/internal/queue"
	"go-gin-atomic-tickets/internal/repository"
	"go-gin-atomic-tickets/internal/service"
	"go-gin-atomic-tickets/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	// 顯式組裝：store client 與腳本 handle 都在這裡注入，不走全域單例
	admissionEngine := cache.NewRedisAdmissionEngine(rdb, cfg.App.IdempotencyTTL)

	settlementQueue, err := queue.NewRedisStreamSettlementQueue(rdb, "", nil)
	if err != nil {
		log.Fatalf("Failed to initialize settlement queue: %v", err)
	}

	eventRepo := repository.NewEventRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

	buyingService := service.NewBuyingService(pool, eventRepo, bookingRepo, admissionEngine, settlementQueue, service.BuyingServiceOptions{
		EnqueueMaxRetries:   cfg.App.EnqueueMaxRetries,
		EnqueueRetryBackoff: cfg.App.EnqueueRetryBackoff,
		NaiveDelay:          cfg.App.NaiveDelay,
	})
	eventService := service.NewEventService(eventRepo, admissionEngine)

	settlementWorker := worker.NewSettlementWorker(buyingService, settlementQueue, cfg.App.SettlementWorkerCount)
	if err := settlementWorker.Start(ctx); err != nil {
		log.Fatalf("Failed to start settlement worker: %v", err)
	}

	router := gin.Default()
	handler.NewBuyingHandler(buyingService).RegisterRoutes(router)
	handler.NewEventHandler(eventService).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// 收到信號：先停止接收新請求，worker 跟著 ctx 一起收斂
	<-ctx.Done()
	stop() // 之後再來的信號直接走預設行為（強制終止）

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
