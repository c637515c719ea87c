package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/snupai/shortlink/internal/middleware"
)

// RouterDeps carries everything NewRouter wires together. EdgeLimiter is
// optional and guards only the redirect route.
type RouterDeps struct {
	Redirect    *RedirectHandler
	API         *APIHandler
	Links       *LinkHandler
	Keys        *KeyHandler
	Admin       *AdminHandler
	Accounts    middleware.AccountResolver
	JWTSecret   []byte
	EdgeLimiter *middleware.RateLimiter
	Log         zerolog.Logger
}

// NewRouter builds the gin engine with every route registered
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(d.Log))
	router.SetHTMLTemplate(unavailableTemplate)

	router.GET("/health", d.Links.HealthCheck)
	router.GET("/unavailable", d.Redirect.Unavailable)
	if d.EdgeLimiter != nil {
		router.GET("/:slug", d.EdgeLimiter.Middleware(), d.Redirect.Redirect)
	} else {
		router.GET("/:slug", d.Redirect.Redirect)
	}

	router.POST("/api/create", d.API.Create)

	api := router.Group("/api/v1")
	{
		api.GET("/info/:slug", d.Links.Info)

		session := api.Group("", middleware.SessionAuth(d.JWTSecret, d.Accounts, d.Log))
		session.GET("/links", d.Links.List)
		session.POST("/links", d.Links.Create)
		session.DELETE("/links/:id", d.Links.Delete)
		session.GET("/links/:id/clicks", d.Links.Clicks)
		session.GET("/links/:id/referrers", d.Links.Referrers)
		session.GET("/quota", d.Links.Quota)

		session.GET("/keys", d.Keys.List)
		session.POST("/keys", d.Keys.Create)
		session.PATCH("/keys/:id", d.Keys.Update)
		session.DELETE("/keys/:id", d.Keys.Delete)

		admin := session.Group("/admin", middleware.RequireAdmin())
		admin.GET("/accounts", d.Admin.Accounts)
		admin.GET("/links", d.Admin.Links)
		admin.POST("/accounts/:id/ban", d.Admin.Ban)
		admin.POST("/accounts/:id/unban", d.Admin.Unban)
		admin.PUT("/accounts/:id/quota", d.Admin.SetQuota)
		admin.DELETE("/accounts/:id", d.Admin.DeleteAccount)
		admin.DELETE("/links/:id", d.Admin.DeleteLink)
		admin.POST("/maintenance/reconcile", d.Admin.Reconcile)
	}

	return router
}
