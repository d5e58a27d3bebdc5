package main

import (
	"context"

	"github.com/cppla/photoblog/config"
	"github.com/cppla/photoblog/models"
	"github.com/cppla/photoblog/routes"
	"github.com/cppla/photoblog/services"
	"github.com/cppla/photoblog/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(&models.User{}, &models.Post{})

	users := services.NewUserService(db)
	if _, _, err := users.EnsureDefaultAuthor(context.Background(), cfg.DefaultAuthorID, cfg.BootstrapUsername, cfg.BootstrapPassword); err != nil {
		utils.Sugar.Fatalf("bootstrap default author: %v", err)
	}

	rdb := utils.NewRedis(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	r, err := routes.SetupRouter(cfg, db, rdb)
	if err != nil {
		utils.Sugar.Fatalf("setup router: %v", err)
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
