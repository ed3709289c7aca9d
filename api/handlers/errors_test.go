package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	unimailerrors "github.com/unimailhq/unimail/internal/errors"
)

func TestRespondError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
	}{
		{unimailerrors.ErrRateLimited, http.StatusTooManyRequests},
		{errors.Wrap(unimailerrors.ErrRateLimited, "account acct-1"), http.StatusTooManyRequests},
		{unimailerrors.ErrAccessDenied, http.StatusNotFound},
		{errors.Wrap(unimailerrors.ErrAccessDenied, "account acct-9"), http.StatusNotFound},
		{unimailerrors.ErrAuthenticationFailed, http.StatusUnauthorized},
		{unimailerrors.ErrAccountNotFound, http.StatusNotFound},
		{unimailerrors.ErrTokenNotFound, http.StatusNotFound},
		{unimailerrors.ErrAccountExists, http.StatusConflict},
		{unimailerrors.ErrActionNotSupported, http.StatusBadRequest},
		{unimailerrors.ErrProviderFailure, http.StatusBadGateway},
		{errors.New("database on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)
		assert.Equal(t, tc.status, w.Code, "error: %v", tc.err)
	}
}

// A caller probing foreign account ids must get responses identical to those
// for ids that do not exist at all.
func TestRespondError_ForeignAccountLooksLikeMissingAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)

	denied := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(denied)
	respondError(c, errors.Wrap(unimailerrors.ErrAccessDenied, "account acct-9"))

	missing := httptest.NewRecorder()
	c, _ = gin.CreateTestContext(missing)
	respondError(c, unimailerrors.ErrAccountNotFound)

	assert.Equal(t, missing.Code, denied.Code)
	assert.Equal(t, missing.Body.String(), denied.Body.String())
}

func TestRespondError_DoesNotLeakInternals(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, errors.New("pq: connection refused host=10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}
