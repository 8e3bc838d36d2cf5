package server

import (
	"broadcast-service/internal/auth"
	"broadcast-service/internal/broadcast"

	"github.com/gin-gonic/gin"
)

// Router wires the broadcasting endpoints onto a gin engine.
type Router struct {
	engine   *gin.Engine
	handler  *broadcast.Handler
	verifier *auth.Verifier
}

func NewRouter(handler *broadcast.Handler, verifier *auth.Verifier, allowedOrigins []string) *Router {
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger(), CORS(allowedOrigins))
	return &Router{
		engine:   engine,
		handler:  handler,
		verifier: verifier,
	}
}

// SetupRoutes configures all the routes for the application
func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// WebSocket endpoint; authentication happens inside the handshake so a
	// close code reaches the client.
	r.engine.GET("/ws", r.handler.ServeWS)

	protected := r.engine.Group("/", auth.Middleware(r.verifier))
	{
		protected.POST("/authorize", r.handler.AuthorizeChannel)
		protected.POST("/events", r.handler.PublishEvent)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
