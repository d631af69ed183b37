package routes

import (
	"github.com/gin-gonic/gin"

	"registrar/internal/handlers"
	"registrar/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	jwtSecret []byte,
	publicLimiter *middleware.RateLimiter, // может быть nil
	publicHandler *handlers.PublicAccessHandler,
	registrationHandler *handlers.RegistrationHandler,
	healthHandler *handlers.HealthHandler,
) *gin.Engine {

	r.GET("/healthz", healthHandler.Healthz)

	// ---- public (заявитель)
	public := r.Group("/api/public")
	if publicLimiter != nil {
		public.Use(publicLimiter.Middleware())
	}
	{
		public.POST("/registration-access/:token/request-code", publicHandler.RequestCode)
		public.POST("/registration-access/:token/verify-code", publicHandler.VerifyCode)
		public.GET("/registration/:id/details", publicHandler.GetDetails)
		public.GET("/registration/:id/summary.pdf", publicHandler.SummaryPDF)
		public.PUT("/registration/:id", publicHandler.UpdateRecord)
	}

	// ---- protected (сотрудники)
	staff := r.Group("/api/registrations",
		middleware.AuthMiddleware(jwtSecret),
		middleware.RegistrationAccess(),
	)
	{
		staff.POST("", registrationHandler.Create)
		staff.GET("/:id", registrationHandler.GetByID)
		staff.POST("/:id/access-link", registrationHandler.IssueAccessLink)
		staff.POST("/:id/status", registrationHandler.UpdateStatus)
	}

	return r
}
