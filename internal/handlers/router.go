package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/middleware"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/ws"
)

// Deps bundles everything the router mounts.
type Deps struct {
	Chats     *ChatHandler
	Messages  *MessageHandler
	Contacts  *ContactHandler
	WS        *ws.Handler
	JWTSecret string
}

// NewRouter builds the gin engine with tracing, metrics and auth wired
// in. Contact sync and the health and metrics endpoints stay outside
// the auth group.
func NewRouter(serviceName string, deps Deps) *gin.Engine {
	registerValidations()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/contacts/sync", deps.Contacts.SyncContacts)

	auth := router.Group("/", middleware.AuthMiddleware(deps.JWTSecret))

	auth.POST("/chats", deps.Chats.CreateChat)
	auth.GET("/chats", deps.Chats.ListChats)
	auth.GET("/chats/:chat_id/members", deps.Chats.GetChatMembers)
	auth.POST("/chats/:chat_id/members", deps.Chats.AddMembers)
	auth.PATCH("/chats/:chat_id", deps.Chats.UpdateGroupProperties)
	auth.PATCH("/chats/:chat_id/members/:user_id/role", deps.Chats.UpdateMemberRole)
	auth.DELETE("/chats/:chat_id/members", deps.Chats.DeleteMembers)

	auth.POST("/chats/:chat_id/messages", deps.Messages.SendMessage)
	auth.GET("/chats/:chat_id/messages", deps.Messages.GetMessages)
	auth.PATCH("/messages/:message_id", deps.Messages.EditMessage)
	auth.DELETE("/messages/:message_id", deps.Messages.DeleteMessage)

	auth.GET("/contacts", deps.Contacts.ListContacts)
	auth.GET("/contacts/by-phone", deps.Contacts.GetContactByPhone)
	auth.POST("/contacts", deps.Contacts.AddContact)
	auth.PATCH("/contacts/:user_id", deps.Contacts.UpdateContact)
	auth.DELETE("/contacts/:user_id", deps.Contacts.DeleteContact)

	auth.GET("/ws/chats/:chat_id", deps.WS.SubscribeChat)
	auth.GET("/ws/notifications", deps.WS.SubscribeQueues)

	return router
}

// registerValidations adds binding rules for domain enums so malformed
// values fail at bind time with a 400.
func registerValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("chattype", func(fl validator.FieldLevel) bool {
		switch models.ChatType(fl.Field().String()) {
		case models.ChatTypeP2P, models.ChatTypeGroup:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("memberrole", func(fl validator.FieldLevel) bool {
		switch models.MemberRole(fl.Field().String()) {
		case models.RoleAdmin, models.RoleMember:
			return true
		}
		return false
	})
}
