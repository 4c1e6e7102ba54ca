package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"product-lens/internal/bootstrap"
	"product-lens/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = app.Config.Classify.MaxImageBytes + 1<<20

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(app.Metrics.Handler()))

	classifyHandler := handler.NewClassifyHandler(
		app.Classifier,
		app.Metrics,
		app.Config.ClassifyTimeout(),
		app.Config.Classify.MaxImageBytes,
	)

	// Cross-origin access is granted on the classification route only.
	classifyGroup := router.Group("/classify")
	classifyGroup.Use(cors.New(classifyCORS()))
	classifyGroup.POST("", classifyHandler.Classify)
	classifyGroup.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	return router
}

func classifyCORS() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	return cfg
}
