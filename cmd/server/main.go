package main // Entry point package

import (
	"context"
	"database/sql"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/tdapps/td-backend/internal/config"
	"github.com/tdapps/td-backend/internal/database"
	"github.com/tdapps/td-backend/internal/handler"
	"github.com/tdapps/td-backend/internal/logging"
	"github.com/tdapps/td-backend/internal/queue"
	"github.com/tdapps/td-backend/internal/repository"
	"github.com/tdapps/td-backend/internal/router"
	"github.com/tdapps/td-backend/internal/storage"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	cfg := config.Load()
	log := logging.New(cfg)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and listing cache disabled")
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	pdus := repository.NewPDURepo(db)
	acaras := repository.NewAcaraRepo(db)

	files := storage.NewLocalStore(cfg.UploadDir)
	events := queue.NewAMQPPublisher(log)
	go queue.StartAuditConsumer(log)

	tx := func(ctx context.Context, fn func(tx *sql.Tx) error) error {
		return database.WithTx(ctx, db, fn)
	}

	authH := handler.NewAuthHandler(cfg, users, sessions, log)
	userH := handler.NewUserHandler(cfg, users, sessions, log)
	pduH := handler.NewPDUHandler(cfg, pdus, acaras, files, events, log, tx)
	acaraH := handler.NewAcaraHandler(cfg, pdus, acaras, files, events, log)
	fileH := handler.NewFileHandler(pdus, acaras, files, log)

	e := echo.New()
	e.HideBanner = true

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, config.LoadRateLimitConfig(), rdb)
	router.RegisterUsers(e, userH, cfg.JWTSecret)
	router.RegisterRecords(e, pduH, acaraH, fileH, cfg.JWTSecret, config.LoadCacheConfig(), rdb)

	addr := ":" + cfg.Port
	log.WithField("addr", addr).Info("server listening")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
