package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-records-api/internal/middleware"
	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/internal/service"
)

// Router groups every handler mounted under the API prefix.
type Router struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Beneficiaries *BeneficiaryHandler
	Scholars      *ScholarHandler
	Photos        *PhotoHandler
	Leaves        *LeaveHandler
	Notifications *NotificationHandler
	Dashboard     *DashboardHandler
	Metrics       *MetricsHandler

	Tokens middleware.TokenValidator
	Audit  *service.AuditService
}

// Register mounts the probes at the root and the API under prefix.
func (rt *Router) Register(r *gin.Engine, prefix string) {
	r.GET("/health", rt.Metrics.Health)
	r.GET("/ready", rt.Metrics.Ready)
	r.GET("/metrics", rt.Metrics.Prometheus)

	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/login", rt.Auth.Login)
	auth.POST("/refresh", rt.Auth.Refresh)

	// signed links authorise themselves
	api.GET("/files/photos/:token", rt.Photos.Serve)

	secured := api.Group("")
	secured.Use(middleware.JWT(rt.Tokens))

	secured.POST("/auth/logout", rt.Auth.Logout)
	secured.POST("/auth/change-password", rt.Auth.ChangePassword)
	secured.GET("/auth/me", rt.Auth.Me)

	admins := middleware.RequireRoles(middleware.AdminRoles...)
	writers := middleware.RequireRoles(middleware.WriterRoles...)

	users := secured.Group("/users", admins)
	users.GET("", rt.Users.List)
	users.POST("", rt.Users.Create)
	users.PUT("/:id", rt.Users.Update)
	users.DELETE("/:id", rt.Users.Delete)

	beneficiaries := secured.Group("/beneficiaries", writers)
	beneficiaries.GET("", rt.Beneficiaries.List)
	beneficiaries.POST("", rt.Beneficiaries.Create)
	beneficiaries.GET("/stats", rt.Beneficiaries.Stats)
	beneficiaries.GET("/export", middleware.AuditExport(rt.Audit, models.AuditResourceBeneficiary), rt.Beneficiaries.Export)
	beneficiaries.GET("/:id", rt.Beneficiaries.Get)
	beneficiaries.PUT("/:id", rt.Beneficiaries.Update)
	beneficiaries.DELETE("/:id", admins, rt.Beneficiaries.Delete)
	beneficiaries.GET("/:id/print", middleware.AuditExport(rt.Audit, models.AuditResourceBeneficiary), rt.Beneficiaries.Print)

	scholars := secured.Group("/scholars")
	scholars.GET("", rt.Scholars.List)
	scholars.POST("", writers, rt.Scholars.Create)
	scholars.GET("/stats", rt.Scholars.Stats)
	scholars.GET("/export", middleware.AuditExport(rt.Audit, models.AuditResourceScholar), rt.Scholars.Export)
	scholars.GET("/:id", rt.Scholars.Get)
	scholars.PUT("/:id", writers, rt.Scholars.Update)
	scholars.DELETE("/:id", admins, rt.Scholars.Delete)
	scholars.GET("/:id/print", middleware.AuditExport(rt.Audit, models.AuditResourceScholar), rt.Scholars.Print)

	secured.POST("/uploads/photos", writers, rt.Photos.Upload)

	leaves := secured.Group("/leaves", writers)
	leaves.POST("", rt.Leaves.Create)
	leaves.GET("", rt.Leaves.List)
	leaves.POST("/:id/approve", admins, rt.Leaves.Approve)
	leaves.POST("/:id/reject", admins, rt.Leaves.Reject)

	secured.GET("/notifications", rt.Notifications.List)
	secured.POST("/notifications/:id/read", rt.Notifications.MarkRead)

	secured.GET("/dashboard", writers, rt.Dashboard.Overview)
	secured.GET("/metrics/summary", admins, rt.Metrics.Snapshot)
}
