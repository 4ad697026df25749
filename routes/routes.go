package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"remindly/handlers"
)

// HandlerBundle collects the HTTP handlers wired at startup.
type HandlerBundle struct {
	Client   *handlers.ClientHandler
	Reminder *handlers.ReminderHandler
	Poll     *handlers.PollHandler
}

// RegisterRoutes registers all endpoints of the reminder API.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	RegisterHealthRoute(r)

	api := r.Group("/api/clients")
	{
		api.POST("", hb.Client.RegisterClientHandler)
		api.PUT("/:id/token", hb.Client.UpdateTokenHandler)
		api.POST("/:id/reminders", hb.Reminder.RegisterReminderHandler)
		api.GET("/:id/reminders", hb.Reminder.ListRemindersHandler)
		api.GET("/:id/wait", hb.Poll.WaitForRemindHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm Remindly"})
	})
}
