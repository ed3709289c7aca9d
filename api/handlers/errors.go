package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	unimailerrors "github.com/unimailhq/unimail/internal/errors"
)

// respondError translates domain errors into HTTP statuses. Unrecognized
// errors become a generic 500 so internals never leak to the caller.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, unimailerrors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": unimailerrors.ErrRateLimited.Error()})
	// A foreign account id answers exactly like a nonexistent one, so the
	// response never reveals whether the id exists.
	case errors.Is(err, unimailerrors.ErrAccessDenied):
		c.JSON(http.StatusNotFound, gin.H{"error": unimailerrors.ErrAccountNotFound.Error()})
	case errors.Is(err, unimailerrors.ErrAuthenticationFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": unimailerrors.ErrAuthenticationFailed.Error()})
	case errors.Is(err, unimailerrors.ErrAccountNotFound), errors.Is(err, unimailerrors.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": unimailerrors.ErrAccountNotFound.Error()})
	case errors.Is(err, unimailerrors.ErrAccountExists):
		c.JSON(http.StatusConflict, gin.H{"error": unimailerrors.ErrAccountExists.Error()})
	case errors.Is(err, unimailerrors.ErrActionNotSupported):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, unimailerrors.ErrProviderFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": unimailerrors.ErrProviderFailure.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
