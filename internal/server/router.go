package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v72"

	"growth-engine/internal/auth"
	"growth-engine/internal/content"
	"growth-engine/internal/ledger"
	"growth-engine/internal/profile"
	"growth-engine/internal/tasks"
	"growth-engine/pkg/logger"
)

// Payments is the checkout and webhook side of the payment provider.
type Payments interface {
	CreateCheckoutSession(userID, email, successURL, cancelURL string) (string, string, error)
	ParseWebhook(payload []byte, signature string) (stripe.Event, error)
}

type Deps struct {
	Profiles *profile.Service
	Tasks    *tasks.Service
	Ledger   *ledger.Service
	Content  *content.Gateway
	// Payments may be nil; checkout and webhook routes then answer 500.
	Payments Payments

	Verifier       auth.TokenVerifier
	AuthDisabled   bool
	AllowedOrigins []string
	PublicURL      string

	Logger *logger.Logger
}

type handlers struct {
	profiles  *profile.Service
	tasks     *tasks.Service
	ledger    *ledger.Service
	content   *content.Gateway
	payments  Payments
	publicURL string
	log       *logger.Logger
}

// NewRouter builds the HTTP router shared by the local server and the Lambda
// handler.
func NewRouter(d Deps) *gin.Engine {
	log := d.Logger.Named("http")
	h := &handlers{
		profiles:  d.Profiles,
		tasks:     d.Tasks,
		ledger:    d.Ledger,
		content:   d.Content,
		payments:  d.Payments,
		publicURL: strings.TrimRight(d.PublicURL, "/"),
		log:       log,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(log))
	router.Use(cors.New(corsConfig(d.AllowedOrigins)))

	router.GET("/health", Health)
	router.POST("/webhook/stripe", h.StripeWebhook)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	api := router.Group("/api")
	api.Use(auth.Middleware(d.Verifier, auth.MiddlewareConfig{Disabled: d.AuthDisabled}, log))
	api.Use(ensureProfile(d.Profiles, log))

	api.GET("/me", h.Me)
	api.POST("/onboarding", h.Onboarding)
	api.GET("/tasks/today", h.Today)
	api.PATCH("/tasks/:taskId/status", h.UpdateTaskStatus)
	api.POST("/tasks/complete-day", h.CompleteDay)
	api.POST("/programs/switch", h.SwitchProgram)
	api.POST("/kpi", h.SubmitKPI)
	api.POST("/credits/redeem", h.Redeem)
	api.POST("/ai/generate", h.Generate)
	api.POST("/pro/upgrade", h.Upgrade)
	api.POST("/pro/checkout", h.CreateCheckoutSession)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader, auth.DevUserHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
