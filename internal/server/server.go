package server

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lonestarmarket/backend/internal/ai"
	"github.com/lonestarmarket/backend/internal/config"
	"github.com/lonestarmarket/backend/internal/crypto"
	"github.com/lonestarmarket/backend/internal/handler"
	"github.com/lonestarmarket/backend/internal/identity"
	appmw "github.com/lonestarmarket/backend/internal/middleware"
	"github.com/lonestarmarket/backend/internal/repository"
	"github.com/lonestarmarket/backend/internal/service"
	"github.com/lonestarmarket/backend/internal/storage"
	"github.com/lonestarmarket/backend/internal/ws"
	"gorm.io/gorm"
)

type Server struct {
	e         *echo.Echo
	chatRepo  repository.ChatRepository
	prodRepo  repository.ProductRepository
	notifRepo repository.NotificationRepository
	repRepo   repository.ReportRepository
	sha       string
	build     string
}

func New(db *gorm.DB, cfg *config.Config, sha, buildTime string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			host := u.Hostname()
			if strings.HasSuffix(host, "lonestarmarket.app") || strings.HasSuffix(host, "vercel.app") {
				return true, nil
			}
			return false, nil
		},
	}))

	codec, err := crypto.NewCodec(cfg.ChatCipherKey)
	if err != nil {
		e.Logger.Fatalf("failed to init message codec: %v", err)
	}

	authMw, err := appmw.NewAuthMiddleware(context.Background())
	if err != nil {
		e.Logger.Fatalf("failed to init firebase auth: %v", err)
	}

	hub := ws.NewHub()

	chatRepo := repository.NewChatRepository(db)
	prodRepo := repository.NewProductRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	repRepo := repository.NewReportRepository(db)

	users := identity.NewFirebaseProvider(authMw.Client())

	notifSvc := service.NewNotificationService(notifRepo)
	chatSvc := service.NewChatService(chatRepo, prodRepo, users, codec, hub, notifSvc)

	var scorer service.ModerationScorer
	if os.Getenv("GEMINI_API_KEY") != "" {
		scorer = ai.NewModerationClient()
	}
	reportSvc := service.NewReportService(chatRepo, repRepo, codec, scorer)

	var uploader *storage.Uploader
	if cfg.StorageBucket != "" {
		uploader, err = storage.NewUploader(context.Background(), cfg.StorageBucket)
		if err != nil {
			e.Logger.Errorf("attachment storage disabled: %v", err)
			uploader = nil
		}
	}

	chatHandler := handler.NewChatHandler(chatSvc, reportSvc, hub, uploader)
	notifHandler := handler.NewNotificationHandler(notifSvc)
	wsHandler := ws.NewHandler(hub, authMw.VerifyToken)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})

	e.GET("/ws/chat", wsHandler.Serve)

	api := e.Group("/api")
	api.POST("/chats", chatHandler.Create, authMw.RequireAuth)
	api.GET("/chats", chatHandler.List, authMw.RequireAuth)
	api.GET("/chats/online", chatHandler.Online, authMw.RequireAuth)
	api.GET("/chats/:id", chatHandler.Get, authMw.RequireAuth)
	api.GET("/chats/:id/messages", chatHandler.ListMessages, authMw.RequireAuth)
	api.POST("/chats/:id/messages", chatHandler.CreateMessage, authMw.RequireAuth)
	api.POST("/chats/:id/read", chatHandler.MarkRead, authMw.RequireAuth)
	api.POST("/chats/:id/report", chatHandler.Report, authMw.RequireAuth)
	api.POST("/chats/:id/attachments", chatHandler.UploadAttachment, authMw.RequireAuth)
	api.GET("/notifications", notifHandler.List, authMw.RequireAuth)
	api.POST("/notifications/read", notifHandler.MarkAllRead, authMw.RequireAuth)

	return &Server{
		e:         e,
		chatRepo:  chatRepo,
		prodRepo:  prodRepo,
		notifRepo: notifRepo,
		repRepo:   repRepo,
		sha:       sha,
		build:     buildTime,
	}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) SetDB(db *gorm.DB) {
	s.chatRepo.SetDB(db)
	s.prodRepo.SetDB(db)
	s.notifRepo.SetDB(db)
	s.repRepo.SetDB(db)
}
