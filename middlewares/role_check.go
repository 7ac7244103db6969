package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/utils"
)

func RoleCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.Param("role")
		userRole, exists := c.Get("role")

		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}

		switch role {
		case "admin":
			if userRole != "admin" {
				utils.RespondError(c, http.StatusForbidden, fmt.Errorf("admin access required"))
				c.Abort()
				return
			}
		case "operator":
			if userRole != "operator" && userRole != "admin" {
				utils.RespondError(c, http.StatusForbidden, fmt.Errorf("operator access required"))
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
