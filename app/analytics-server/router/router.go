package router

import (
	"auctionWatch/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupAnalysisRoutes(api *echo.Group, handler *rest.AnalysisHandler, authRequired, analystOnly echo.MiddlewareFunc) {
	analysis := api.Group("/analysis")
	analysis.GET("/status", handler.GetStatus)
	analysis.GET("/report", handler.GetReport)
	analysis.GET("/runs/:run_id/evidence", handler.GetRunEvidence)
	analysis.POST("/run", handler.RunAnalysis, authRequired, analystOnly)
}

func SetupRatingRoutes(api *echo.Group, handler *rest.AnalysisHandler) {
	ratings := api.Group("/ratings")
	ratings.GET("/top", handler.GetTopRatings)
	ratings.GET("/:login", handler.GetRating)
}
