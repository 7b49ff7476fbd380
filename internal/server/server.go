package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"zenpulse/internal/api"
	"zenpulse/internal/database"
	"zenpulse/internal/services"
)

// Services is what the HTTP layer needs from the service manager.
type Services interface {
	Dashboard() services.Dashboard
	Overview(ctx context.Context) (services.Overview, error)
	SaveMood(ctx context.Context, mood int, journal, notes *string) (database.Entry, error)
	SendChat(ctx context.Context, text string) (services.TurnResult, error)
	Refresh(ctx context.Context) (int, error)
	ClearSession()
	PepTalk(another bool) string

	Register(ctx context.Context, name, email, password, confirm string) error
	Login(ctx context.Context, email, password string) (database.User, error)
	CurrentUser(ctx context.Context) (database.User, error)
	Logout()
}

type Config struct {
	Addr string
}

// Server exposes the dashboard and chat over a local JSON API.
type Server struct {
	app      *fiber.App
	services Services
	cfg      Config
	log      *zap.Logger
}

func NewServer(cfg Config, svc Services, log *zap.Logger) *Server {
	srv := &Server{services: svc, cfg: cfg, log: log.Named("server")}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          srv.handleError,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${status} | ${latency} | ${method} ${path}\n",
		Output: zap.NewStdLog(srv.log).Writer(),
	}))
	app.Use(cors.New())

	srv.app = app
	srv.registerRoutes()
	return srv
}

// Run listens until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}

	go func() {
		<-ctx.Done()
		_ = s.app.Shutdown()
		// Shutdown misses a listener that is not serving yet
		_ = ln.Close()
	}()

	s.log.Info("local API listening", zap.String("addr", ln.Addr().String()))
	if err := s.app.Listener(ln); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := s.app.Group("/api/v1")
	v1.Get("/dashboard", s.handleDashboard)
	v1.Get("/mood-history", s.handleMoodHistory)
	v1.Get("/sentiment-stats", s.handleSentimentStats)
	v1.Get("/messages", s.handleMessages)
	v1.Get("/insights", s.handleInsights)
	v1.Post("/chat", s.handleChat)
	v1.Post("/mood", s.handleMood)
	v1.Post("/refresh", s.handleRefresh)
	v1.Delete("/session", s.handleClearSession)
	v1.Get("/peptalk", s.handlePepTalk)

	auth := v1.Group("/auth")
	auth.Post("/register", s.handleRegister)
	auth.Post("/login", s.handleLogin)
	auth.Get("/me", s.handleMe)
	auth.Post("/logout", s.handleLogout)
}

func (s *Server) handleDashboard(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": s.services.Dashboard()})
}

func (s *Server) handleMoodHistory(c *fiber.Ctx) error {
	items := s.services.Dashboard().MoodHistory
	return c.JSON(fiber.Map{"data": items, "meta": fiber.Map{"count": len(items)}})
}

func (s *Server) handleSentimentStats(c *fiber.Ctx) error {
	d := s.services.Dashboard()
	return c.JSON(fiber.Map{"data": fiber.Map{
		"sentimentStats":    d.SentimentStats,
		"sessionSentiments": d.SessionTally,
		"totalAnalyses":     d.TotalAnalyses,
		"positiveRate":      d.PositiveRate,
	}})
}

func (s *Server) handleMessages(c *fiber.Ctx) error {
	items := s.services.Dashboard().AllMessages
	return c.JSON(fiber.Map{"data": items, "meta": fiber.Map{"count": len(items)}})
}

func (s *Server) handleInsights(c *fiber.Ctx) error {
	overview, err := s.services.Overview(c.UserContext())
	if err != nil {
		// the overview still carries the last good entries and the error
		s.log.Warn("overview refresh failed", zap.Error(err))
	}
	return c.JSON(fiber.Map{"data": overview})
}

type chatPayload struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var payload chatPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	res, err := s.services.SendChat(c.UserContext(), payload.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": res})
}

type moodPayload struct {
	Mood    *int    `json:"mood"`
	Journal *string `json:"journal"`
	Notes   *string `json:"notes"`
}

func (s *Server) handleMood(c *fiber.Ctx) error {
	var payload moodPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if payload.Mood == nil {
		return &api.ValidationError{Field: "mood", Message: "is required"}
	}

	entry, err := s.services.SaveMood(c.UserContext(), *payload.Mood, payload.Journal, payload.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entry})
}

func (s *Server) handleRefresh(c *fiber.Ctx) error {
	count, err := s.services.Refresh(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"count": count}})
}

func (s *Server) handleClearSession(c *fiber.Ctx) error {
	s.services.ClearSession()
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handlePepTalk(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{"pepTalk": s.services.PepTalk(c.QueryBool("another"))}})
}

type registerPayload struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var payload registerPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	if err := s.services.Register(c.UserContext(), payload.Name, payload.Email, payload.Password, payload.ConfirmPassword); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"email": payload.Email}})
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var payload loginPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	user, err := s.services.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

func (s *Server) handleMe(c *fiber.Ctx) error {
	user, err := s.services.CurrentUser(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	s.services.Logout()
	return c.SendStatus(fiber.StatusNoContent)
}

// handleError maps service errors onto HTTP statuses.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"

	var (
		fe   *fiber.Error
		verr *api.ValidationError
		aerr *api.APIError
	)
	switch {
	case errors.As(err, &fe):
		code, msg = fe.Code, fe.Message
	case errors.As(err, &verr):
		code, msg = fiber.StatusBadRequest, verr.Error()
	case api.IsNetworkError(err):
		code, msg = fiber.StatusBadGateway, "backend unavailable"
	case errors.As(err, &aerr):
		code, msg = aerr.Status, aerr.Message
	}

	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Path()), zap.Int("status", code), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
