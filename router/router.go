package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/controllers"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/middlewares"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/services"
)

func SetupRouter(db *gorm.DB, gateway services.PaymentGateway) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	userCtrl := controllers.NewUserController(db)
	bookingCtrl := controllers.NewBookingController(db, gateway)
	paymentCtrl := controllers.NewPaymentController(db, gateway)
	adminCtrl := controllers.NewAdminController(db)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Strict limiter on login/register
	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// ----------------------------------------------------------------
	//                      BOOKING ROUTES
	// ----------------------------------------------------------------
	bookings := r.Group("/api/bookings")
	{
		bookings.POST("/plants", bookingCtrl.CreatePlantBooking)
		bookings.POST("/rest", bookingCtrl.CreateRestBooking)
		bookings.POST("/horse", bookingCtrl.CreateHorseBooking)
	}

	// ----------------------------------------------------------------
	//                      PAYMENT ROUTES
	// ----------------------------------------------------------------
	payments := r.Group("/api/payment")
	payments.Use(middlewares.PaymentSecurityHeaders())
	payments.Use(middlewares.PaymentRateLimiter())
	payments.Use(middlewares.LogPaymentRequest())
	{
		payments.POST("/create-order", paymentCtrl.CreateOrder)
		payments.GET("/verify/:reference", paymentCtrl.VerifyPayment)
		payments.POST("/verify-status", paymentCtrl.VerifyStatus)
		payments.POST("/payment-channels", paymentCtrl.PaymentChannels)
		payments.GET("/verify-and-update/:reference", paymentCtrl.VerifyAndUpdate)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware())
	{
		auth.GET("/profile", userCtrl.GetProfile)
		auth.GET("/dashboard/stats", adminCtrl.GetDashboardStats)
	}

	// WebSocket endpoint for the dashboard payment feed
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	wsGroup.Use(middlewares.RoleCheck())
	{
		wsGroup.GET("/:role", controllers.PaymentEventsHandler)
	}

	return r
}
