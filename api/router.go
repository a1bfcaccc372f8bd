package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trustwork/discovery/api/handlers"
	"github.com/trustwork/discovery/logger"
	"github.com/trustwork/discovery/services/savedsearch"
	"github.com/trustwork/discovery/services/search"
	"github.com/trustwork/discovery/validation"
)

func setupRoutes(router *gin.Engine, logger logger.Logger, orchestrator *search.Orchestrator, savedSearches *savedsearch.Store, validator *validation.Validator) {
	router.GET("/health", health())

	handlers.SetupSearch(router, logger, orchestrator, validator)
	handlers.SetupSavedSearches(router, logger, savedSearches, validator)
}

func health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

func newRouter() *gin.Engine {
	router := gin.Default()
	router.UseRawPath = true
	router.Use(_CORSMiddleware())
	router.Use(gin.Recovery())
	router.Use(principalMiddleware())

	return router
}
