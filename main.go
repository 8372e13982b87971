package main

import (
	"log"

	"github.com/kmish9685/Persona-AI/api"
	"github.com/kmish9685/Persona-AI/config"
	"github.com/kmish9685/Persona-AI/database"
	"github.com/kmish9685/Persona-AI/middleware"
	"github.com/kmish9685/Persona-AI/models"
	"github.com/kmish9685/Persona-AI/payments"
	"github.com/kmish9685/Persona-AI/repository"
	"github.com/kmish9685/Persona-AI/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: [Main] No .env file found. Relying on process environment.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: [Main] Failed to load configuration: %v", err)
	}

	db, err := database.Init(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("FATAL: [Main] Failed to initialize database: %v", err)
	}

	var userRepo repository.UserRepository
	var statsRepo repository.StatsRepository
	var txnRepo repository.TransactionRepository
	if db != nil {
		if err := db.AutoMigrate(&models.UserRecord{}, &models.GlobalStat{}, &models.Transaction{}); err != nil {
			log.Fatalf("FATAL: [Main] Failed to migrate database schema: %v", err)
		}
		userRepo = repository.NewUserRepository(db)
		statsRepo = repository.NewStatsRepository(db)
		txnRepo = repository.NewTransactionRepository(db)
		log.Println("INFO: [Main] Repositories initialized.")
	}

	chatRepo := repository.NewChatRepository()
	gumroad := payments.NewGumroadClient(cfg.Gumroad.BaseURL, cfg.Gumroad.AccessToken)

	identity := services.NewIdentityResolver(cfg.Auth.JWTSecret)
	quota := services.NewQuotaService(userRepo, statsRepo, cfg.Quota.DailyFreeLimit, cfg.Quota.GlobalSafetyCap)
	entitlement := services.NewEntitlementService(userRepo, txnRepo, gumroad, cfg.Gumroad.PriceCents)
	chat := services.NewChatService(cfg, chatRepo)
	log.Println("INFO: [Main] Services initialized.")

	handler := api.NewAPIHandler(cfg, identity, quota, entitlement, chat, userRepo, gumroad)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(), middleware.Cors())
	handler.RegisterRoutes(router)

	addr := ":" + cfg.Server.Port
	log.Printf("INFO: [Main] Starting server on %s (quota degraded: %v).", addr, quota.Degraded())
	if err := router.Run(addr); err != nil {
		log.Fatalf("FATAL: [Main] Server exited: %v", err)
	}
}
