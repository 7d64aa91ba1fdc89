package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ekrukov/slotbooking/api"
	"github.com/ekrukov/slotbooking/config"
	"github.com/ekrukov/slotbooking/internal/auth"
	"github.com/ekrukov/slotbooking/internal/service/booking"
	"github.com/ekrukov/slotbooking/internal/service/catalog"
	"github.com/ekrukov/slotbooking/internal/service/reviews"
	"github.com/ekrukov/slotbooking/internal/service/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Users    users.UserUseCase
	Catalog  catalog.ServiceUseCase
	Bookings booking.BookingUseCase
	Reviews  reviews.ReviewUseCase
	Tokens   *auth.TokenManager
	Logger   *zap.Logger
}

// Run starts the HTTP server and blocks until ctx is canceled or the server
// fails.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	router := NewRouter(deps)
	server := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

// NewRouter builds the gin engine with all routes and middleware wired.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestID(), api.RequestLogger(deps.Logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	authed := api.Auth(deps.Tokens)
	admin := api.RequireAdmin()

	userHandler := api.NewUserHandler(deps.Users)
	userHandler.Register(router.Group("/users"), router.Group("/users", authed))

	serviceHandler := api.NewServiceHandler(deps.Catalog)
	serviceHandler.Register(router.Group("/services"), router.Group("/services", authed, admin))

	bookingHandler := api.NewBookingHandler(deps.Bookings)
	bookingHandler.Register(
		router.Group("/bookings"),
		router.Group("/bookings", authed),
		router.Group("/bookings", authed, admin),
	)

	reviewHandler := api.NewReviewHandler(deps.Reviews)
	reviewHandler.Register(router.Group("/reviews"), router.Group("/reviews", authed))

	return router
}
