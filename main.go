package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/config"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/middlewares"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/models"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/router"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/services"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/utils"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	utils.InitLogger()
}

func main() {
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	gateway := services.GetNoqoodyService()
	if err := gateway.ValidateConfig(); err != nil {
		utils.ErrorLogger.Printf("NoqoodyPay config incomplete: %v", err)
	}

	// Sweep abandoned pending bookings into timeout
	verification := services.NewVerificationService(db, gateway)
	verification.StartExpirySweeper()
	defer verification.StopExpirySweeper()

	rateLimiter := middlewares.NewRateLimiter(50, 1)

	r := router.SetupRouter(db, gateway)
	r.Use(rateLimiter.RateLimit())

	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.PlantOrder{},
		&models.PlantOrderItem{},
		&models.RestReservation{},
		&models.HorseTrainingSession{},
		&models.TrainingAppointment{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
