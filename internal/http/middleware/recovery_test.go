package middleware_test

import (
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/moraeszete/webhook-payments-integrations/internal/http/middleware"
)

var _ = Describe("Recovery and Logger", func() {
	var router *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(middleware.Recovery(), middleware.Logger())
		router.GET("/panic", func(*gin.Context) { panic("boom") })
		router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, middleware.RequestID(c)) })
	})

	It("turns a panic into a JSON 500", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(MatchJSON(`{"error":true,"message":"Internal server error"}`))
	})

	It("assigns a request id", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		Expect(w.Header().Get(middleware.RequestIDHeader)).NotTo(BeEmpty())
		Expect(w.Body.String()).To(Equal(w.Header().Get(middleware.RequestIDHeader)))
	})

	It("reuses an inbound request id", func() {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Body.String()).To(Equal("req-123"))
	})
})
