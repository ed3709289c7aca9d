package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unimailhq/unimail/interfaces"
	"github.com/unimailhq/unimail/internal/tracing"
)

// GetMessages serves one folder of one account, cached.
func (h *Handlers) GetMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.startSpan(c, "GetMessages")
		defer span.Finish()

		accountID := c.Param("id")
		folder := c.DefaultQuery("folder", interfaces.DefaultFolder)
		maxResults, err := strconv.Atoi(c.DefaultQuery("maxResults", strconv.Itoa(interfaces.DefaultMaxResults)))
		if err != nil || maxResults <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "maxResults must be a positive integer"})
			return
		}

		page, err := h.services.MailService.GetMessages(ctx, accountID, folder, maxResults)
		if err != nil {
			tracing.TraceErr(span, err)
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// SearchMessages queries one account's provider directly, uncached.
func (h *Handlers) SearchMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.startSpan(c, "SearchMessages")
		defer span.Finish()

		var request interfaces.SearchRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if request.AccountID == "" || request.Query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "accountId and query are required"})
			return
		}

		result, err := h.services.MailService.SearchMessages(ctx, request)
		if err != nil {
			tracing.TraceErr(span, err)
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// PerformBulkAction applies one action to a batch of messages. The response
// reports per-id counts even when some ids fail.
func (h *Handlers) PerformBulkAction() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.startSpan(c, "PerformBulkAction")
		defer span.Finish()

		var request interfaces.BulkActionRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if request.AccountID == "" || len(request.MessageIDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "accountId and messageIds are required"})
			return
		}
		if !request.Action.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
			return
		}

		result, err := h.services.MailService.PerformBulkAction(ctx, request)
		if err != nil {
			tracing.TraceErr(span, err)
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// GetSummary aggregates unread counts across the user's enabled accounts.
func (h *Handlers) GetSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.startSpan(c, "GetSummary")
		defer span.Finish()

		summary, err := h.services.MailService.GetSummary(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
