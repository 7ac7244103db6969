package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/utils"
)

// PaymentSecurityHeaders adds stricter headers for payment endpoints
func PaymentSecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Cache-Control", "no-store")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Next()
	}
}

// PaymentRateLimiter bounds gateway traffic from verification polling
func PaymentRateLimiter() gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Every(time.Second), 10)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.JSON(429, gin.H{
				"error":   "Too many requests",
				"message": "يرجى الانتظار قبل إعادة المحاولة",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// LogPaymentRequest logs payment endpoint access with outcome status
func LogPaymentRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		if status >= 400 {
			utils.ErrorLogger.Printf("Payment request failed: %s %s -> %d (%v)", method, path, status, time.Since(start))
			return
		}
		utils.InfoLogger.Printf("Payment request: %s %s -> %d (%v)", method, path, status, time.Since(start))
	}
}
