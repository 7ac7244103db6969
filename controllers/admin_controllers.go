package controllers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/models"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/services"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/utils"
)

type AdminController struct {
	DB *gorm.DB
}

func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{DB: db}
}

type bookingTypeStats struct {
	Total   int64  `json:"total"`
	Pending int64  `json:"pending"`
	Paid    int64  `json:"paid"`
	Failed  int64  `json:"failed"`
	Timeout int64  `json:"timeout"`
	Revenue string `json:"revenue"`
}

// GetDashboardStats returns revenue and payment-status counts per
// booking type for the admin dashboard.
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	roleInterface, exists := c.Get("role")
	if !exists {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("no role found"))
		return
	}

	role, ok := roleInterface.(string)
	if !ok || role != "admin" {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	today := time.Now().Format("2006-01-02")

	var stats struct {
		TotalBookings int64            `json:"totalBookings"`
		TodayBookings int64            `json:"todayBookings"`
		TotalRevenue  string           `json:"totalRevenue"`
		Plants        bookingTypeStats `json:"plants"`
		Rest          bookingTypeStats `json:"rest"`
		Horse         bookingTypeStats `json:"horse"`
	}

	plants := ac.statsFor(&models.PlantOrder{})
	rest := ac.statsFor(&models.RestReservation{})
	horse := ac.statsFor(&models.HorseTrainingSession{})

	stats.Plants = plants
	stats.Rest = rest
	stats.Horse = horse
	stats.TotalBookings = plants.Total + rest.Total + horse.Total

	var todayPlants, todayRest, todayHorse int64
	ac.DB.Model(&models.PlantOrder{}).Where("DATE(created_at) = ?", today).Count(&todayPlants)
	ac.DB.Model(&models.RestReservation{}).Where("DATE(created_at) = ?", today).Count(&todayRest)
	ac.DB.Model(&models.HorseTrainingSession{}).Where("DATE(created_at) = ?", today).Count(&todayHorse)
	stats.TodayBookings = todayPlants + todayRest + todayHorse

	total := ac.revenueFor(&models.PlantOrder{}).
		Add(ac.revenueFor(&models.RestReservation{})).
		Add(ac.revenueFor(&models.HorseTrainingSession{}))
	stats.TotalRevenue = total.StringFixed(2)

	utils.RespondJSON(c, http.StatusOK, "إحصائيات لوحة التحكم", stats)
}

func (ac *AdminController) statsFor(model interface{}) bookingTypeStats {
	var stats bookingTypeStats
	ac.DB.Model(model).Count(&stats.Total)
	ac.DB.Model(model).Where("payment_status = ?", services.PaymentStatusPending).Count(&stats.Pending)
	ac.DB.Model(model).Where("payment_status = ?", services.PaymentStatusPaid).Count(&stats.Paid)
	ac.DB.Model(model).Where("payment_status = ?", services.PaymentStatusFailed).Count(&stats.Failed)
	ac.DB.Model(model).Where("payment_status = ?", services.PaymentStatusTimeout).Count(&stats.Timeout)
	stats.Revenue = ac.revenueFor(model).StringFixed(2)
	return stats
}

func (ac *AdminController) revenueFor(model interface{}) decimal.Decimal {
	// Scanned as text so the decimal sum survives the driver untouched.
	var sum sql.NullString
	row := ac.DB.Model(model).
		Where("payment_status = ?", services.PaymentStatusPaid).
		Select("COALESCE(SUM(total_amount), 0)").Row()
	if err := row.Scan(&sum); err != nil || !sum.Valid {
		return decimal.Zero
	}
	total, err := decimal.NewFromString(sum.String)
	if err != nil {
		return decimal.Zero
	}
	return total
}
