package main

import (
	"fmt"
	"os"

	"github.com/Talalkassab/manfaa-api/internal/assembler"
	"github.com/Talalkassab/manfaa-api/internal/filemeta"
	"github.com/Talalkassab/manfaa-api/internal/handler"
	custommw "github.com/Talalkassab/manfaa-api/internal/middleware"
	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/Talalkassab/manfaa-api/internal/nda"
	"github.com/Talalkassab/manfaa-api/internal/search"
	"github.com/Talalkassab/manfaa-api/internal/storage"
	"github.com/Talalkassab/manfaa-api/pkg/config"
	"github.com/Talalkassab/manfaa-api/pkg/database"
	"github.com/Talalkassab/manfaa-api/pkg/jwtutil"
	"github.com/Talalkassab/manfaa-api/pkg/logger"
	"github.com/Talalkassab/manfaa-api/prometheus"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	conf, err := config.Load("marketplace")
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(conf); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	db, err := database.InitDB(&conf.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if err := database.MigrateModels(
		&model.Business{},
		&model.BusinessFile{},
		&model.NDA{},
		&model.Message{},
		&model.DeletionRequest{},
		&model.Profile{},
	); err != nil {
		log.Fatal("Failed to migrate database models", zap.Error(err))
	}

	store, err := storage.NewMinioStore(&conf.Storage)
	if err != nil {
		log.Fatal("Failed to connect to object storage", zap.Error(err))
	}
	resolver := storage.NewResolver(store, conf.Storage.Buckets, log)

	var searchClient *search.SearchClient
	if conf.Search.Enabled() {
		searchClient = search.NewSearchClient(conf.Search.Host, conf.Search.APIKey, conf.Search.Index)
		if err := searchClient.InitIndex(); err != nil {
			log.Warn("Failed to initialize search index, continuing without search", zap.Error(err))
			searchClient = nil
		}
	}

	defaultVis := model.Visibility(conf.Files.DefaultVisibility)
	metaStore := filemeta.NewStore(db, defaultVis)
	ndas := nda.NewAccessor(db)
	asm := assembler.New(db, resolver, metaStore, ndas, log)

	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      conf.JWT.SigningKey,
		ExpirationHours: conf.JWT.ExpirationHours,
	})

	// Keep the interface nil when search is off; a typed nil would pass the
	// handlers' nil checks
	var searchIndex handler.SearchIndex
	if searchClient != nil {
		searchIndex = searchClient
	}

	businessHandler := handler.NewBusinessHandler(asm, store, metaStore, searchIndex, &conf.Storage, conf.Files.MaxUploadBytes)
	fileHandler := handler.NewFileHandler(resolver, metaStore, ndas, store, defaultVis)
	ndaHandler := handler.NewNDAHandler(ndas)
	adminHandler := handler.NewAdminHandler(store, metaStore, searchIndex)

	e := echo.New()
	e.HideBanner = true

	e.Use(custommw.RequestIDMiddleware())
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	e.GET("/health", handler.Health)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	api := e.Group("/api")

	// Public browsing; claims resolved when present for owner/admin scope
	api.GET("/businesses", businessHandler.List, custommw.OptionalAuth(jwt))
	api.GET("/businesses/:id", businessHandler.Get, custommw.OptionalAuth(jwt))
	api.POST("/businesses", businessHandler.Create, custommw.RequireAuth(jwt))
	api.PUT("/businesses/:id", businessHandler.Update, custommw.RequireAuth(jwt))

	// File streaming with per-file visibility checks
	api.GET("/storage/:bucket/*", fileHandler.Serve, custommw.OptionalAuth(jwt))
	api.PUT("/files/:id", fileHandler.UpdateMetadata, custommw.RequireAuth(jwt))
	api.DELETE("/files/:id", fileHandler.Delete, custommw.RequireAuth(jwt))

	ndaGroup := api.Group("/ndas", custommw.RequireAuth(jwt))
	ndaGroup.GET("", ndaHandler.List)
	ndaGroup.POST("", ndaHandler.Sign)
	ndaGroup.PUT("/:id", ndaHandler.Resolve)

	messages := api.Group("/messages", custommw.RequireAuth(jwt))
	messages.GET("", handler.ListMessages)
	messages.POST("", handler.SendMessage)

	api.POST("/deletion-requests", handler.CreateDeletionRequest, custommw.RequireAuth(jwt))

	admin := api.Group("/admin", custommw.RequireAuth(jwt), custommw.RequireAdmin())
	admin.GET("/businesses", adminHandler.ListBusinesses)
	admin.POST("/businesses/:id/approve", adminHandler.ApproveBusiness)
	admin.POST("/businesses/:id/reject", adminHandler.RejectBusiness)
	admin.GET("/deletion-requests", adminHandler.ListDeletionRequests)
	admin.POST("/deletion-requests/:id/:action", adminHandler.ResolveDeletionRequest)
	admin.GET("/stats", adminHandler.Stats)

	log.Info("Starting marketplace API", zap.String("port", conf.Server.Port))
	e.Logger.Fatal(e.Start(":" + conf.Server.Port))
}
