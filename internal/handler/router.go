package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/husma-donation-api/internal/middleware"
	"github.com/noah-isme/husma-donation-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth      *AuthHandler
	Inventory *InventoryHandler
	Cart      *CartHandler
	Receipts  *ReceiptHandler
	Donors    *DonorHandler
	Children  *ChildHandler
	Donations *DonationHandler
	Analytics *AnalyticsHandler
}

// RegisterRoutes mounts the public, donor and staff route groups.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator) {
	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/admin/login", h.Auth.AdminLogin)
	auth.POST("/password-reset", h.Auth.PasswordReset)

	api.GET("/catalog", h.Inventory.Catalog)
	api.GET("/receipts/download", h.Receipts.Download)

	cart := api.Group("/cart", middleware.OptionalJWT(tokens))
	cart.GET("", h.Cart.View)
	cart.DELETE("", h.Cart.Clear)
	cart.PUT("/lines/:productId", h.Cart.SetLine)
	cart.DELETE("/lines/:productId", h.Cart.RemoveLine)
	cart.PUT("/direct-amount", h.Cart.SetDirectAmount)
	cart.POST("/checkout", h.Cart.BeginCheckout)
	cart.POST("/checkout/back", h.Cart.Back)
	cart.POST("/checkout/confirm", h.Cart.Confirm)

	donors := api.Group("/donors", middleware.JWT(tokens), middleware.RequireRoles(models.RoleDonor))
	donors.GET("/me", h.Donors.Me)
	donors.GET("/me/donations", h.Donors.MyDonations)

	admin := api.Group("/admin", middleware.JWT(tokens), middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/donors", h.Donors.List)
	admin.GET("/donors/:id", h.Donors.Get)

	admin.GET("/children", h.Children.List)
	admin.POST("/children", h.Children.Create)
	admin.GET("/children/:id", h.Children.Get)
	admin.PUT("/children/:id", h.Children.Update)
	admin.DELETE("/children/:id", h.Children.Delete)
	admin.GET("/children/:id/issues", h.Children.Issues)
	admin.POST("/children/:id/issues", h.Children.Issue)

	admin.GET("/inventory", h.Inventory.List)
	admin.GET("/inventory/low-stock", h.Inventory.LowStock)
	admin.POST("/inventory/:id/adjust", h.Inventory.Adjust)

	admin.GET("/donations", h.Donations.List)
	admin.GET("/donations/export.csv", h.Donations.ExportCSV)
	admin.GET("/donations/:id/slip", h.Donations.Slip)
	admin.GET("/donations/:id/receipt-url", h.Donations.ReceiptURL)

	admin.GET("/analytics", h.Analytics.Report)
	admin.GET("/analytics/report.pdf", h.Analytics.ReportPDF)
	admin.GET("/analytics/system", h.Analytics.System)
}
