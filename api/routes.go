package api

import (
	"github.com/gin-gonic/gin"

	"github.com/unimailhq/unimail/api/handlers"
	"github.com/unimailhq/unimail/api/middleware"
	"github.com/unimailhq/unimail/config"
	"github.com/unimailhq/unimail/internal/logger"
	"github.com/unimailhq/unimail/internal/repository"
	"github.com/unimailhq/unimail/services"
)

// RegisterRoutes mounts the public API. Everything under /v1 requires the
// service api key plus a resolved user identity.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, svc *services.Services, repositories *repository.Repositories, log logger.Logger) {
	h := handlers.NewHandlers(svc, repositories, log)

	r.GET("/health", handlers.HealthCheck())

	v1 := r.Group("/v1",
		middleware.ApiKeyChecker(cfg.AppConfig.APIKey),
		middleware.UserContextEnricher(),
	)

	v1.POST("/accounts", h.LinkAccount())
	v1.GET("/accounts", h.ListAccounts())
	v1.PATCH("/accounts/:id", h.UpdateAccount())
	v1.DELETE("/accounts/:id", h.UnlinkAccount())

	v1.GET("/accounts/:id/messages", h.GetMessages())
	v1.POST("/mail/search", h.SearchMessages())
	v1.POST("/mail/actions", h.PerformBulkAction())
	v1.GET("/mail/summary", h.GetSummary())
}
