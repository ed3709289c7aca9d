package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/unimailhq/unimail/internal/logger"
	"github.com/unimailhq/unimail/internal/repository"
	"github.com/unimailhq/unimail/internal/tracing"
	"github.com/unimailhq/unimail/internal/utils"
	"github.com/unimailhq/unimail/services"
)

const appSourceUnimailApi = "unimail-api"

type Handlers struct {
	services     *services.Services
	repositories *repository.Repositories
	log          logger.Logger
}

func NewHandlers(services *services.Services, repositories *repository.Repositories, log logger.Logger) *Handlers {
	return &Handlers{
		services:     services,
		repositories: repositories,
		log:          log,
	}
}

// startSpan opens the server span for one request and returns a context
// carrying both the span and the caller's identity.
func (h *Handlers) startSpan(c *gin.Context, operationName string) (context.Context, opentracing.Span) {
	ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), operationName, c.Request.Header)
	ctx = utils.WithCustomContext(ctx, &utils.CustomContext{
		AppSource: appSourceUnimailApi,
		UserId:    c.GetString("UserId"),
		UserEmail: c.GetString("UserEmail"),
	})
	tracing.SetDefaultRestSpanTags(ctx, span)
	return ctx, span
}
