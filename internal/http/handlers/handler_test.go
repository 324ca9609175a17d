package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{fmt.Errorf("%w: detail", domain.ErrInvalidReferrer), http.StatusBadRequest},
		{domain.ErrAlreadyRegistered, http.StatusConflict},
		{domain.ErrAlreadyFinalized, http.StatusConflict},
		{domain.ErrStakeNotFound, http.StatusNotFound},
		{domain.ErrNotMatured, http.StatusUnprocessableEntity},
		{domain.ErrTxNotConfirmed, http.StatusUnprocessableEntity},
		{service.ErrInvalidSignature, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}

func TestRespondErrorHidesInternal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), `"code":"internal"`)
}

func TestRespondErrorCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, fmt.Errorf("%w: 50 < 100", domain.ErrBelowMinimum))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"below_minimum"`)
}

func TestQueryLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]int{
		"":                     50,
		"?limit=10":            10,
		"?limit=0":             50,
		"?limit=-3":            50,
		"?limit=abc":           50,
		"?limit=500":           service.MaxPageSize,
		"?limit=100000":        service.MaxPageSize,
		"?limit=9999999999999": service.MaxPageSize,
	}
	for query, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/x"+query, nil)
		assert.Equal(t, want, queryLimit(c, 50), query)
	}
}
