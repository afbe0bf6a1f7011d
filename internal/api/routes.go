package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/catalog", handler.GetCatalog)
		api.GET("/stats", handler.GetStats)
		api.GET("/towns/:town/extent", handler.GetTownExtent)

		api.GET("/users/:user_id/preference", handler.GetPreference)
		api.PUT("/users/:user_id/preference", handler.UpdatePreference)
		api.DELETE("/users/:user_id/preference", handler.DeletePreference)

		api.POST("/sessions", handler.CreateSession)
		api.GET("/sessions/:id", handler.GetSession)
		api.PATCH("/sessions/:id/criteria", handler.UpdateCriteria)
		api.POST("/sessions/:id/recommendation", handler.SetRecommendation)
		api.POST("/sessions/:id/reset", handler.ResetSession)
		api.POST("/sessions/:id/search", handler.SearchSession)
		api.DELETE("/sessions/:id", handler.DeleteSession)

		api.GET("/listings", handler.SearchListings)
		api.POST("/listings", handler.CreateListing)
		api.POST("/listings/import", handler.ImportListings)
		api.GET("/listings/:id", handler.GetListing)
		api.PUT("/listings/:id", handler.UpdateListing)
		api.DELETE("/listings/:id", handler.DeleteListing)
		api.POST("/listings/:id/approve", handler.ApproveListing)
		api.POST("/listings/:id/reject", handler.RejectListing)
	}
}
