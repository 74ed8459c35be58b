// Package control is the local HTTP API the daemon exposes to the CLI. It is
// how user actions on alerts reach the dispatcher.
package control

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/dispatcher"
	"github.com/julianstephens/medalert/internal/logger"
	"github.com/julianstephens/medalert/internal/models"
)

// Dispatcher is the part of the action dispatcher the API drives.
type Dispatcher interface {
	Respond(ctx context.Context, resp dispatcher.Response) (dispatcher.Outcome, error)
	StartTestAlarm(ctx context.Context) (dispatcher.Outcome, error)
	StopAll() int
	State(id string) dispatcher.State
	ForgetMedication(medicationID string) []string
}

// Tray is the part of the notification layer the API reads and clears.
type Tray interface {
	ListPresented(ctx context.Context) ([]string, error)
	Presented(id string) (models.AlertEntry, bool)
	Clear(id string) bool
}

// Health is the body of GET /health.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	PID     int    `json:"pid"`
}

// PresentedAlert describes one alert on screen.
type PresentedAlert struct {
	ID      string              `json:"id"`
	Title   string              `json:"title"`
	Body    string              `json:"body"`
	Actions []string            `json:"actions"`
	State   dispatcher.State    `json:"state"`
	Payload models.AlertPayload `json:"payload"`
}

type Server struct {
	dispatcher Dispatcher
	tray       Tray
	secret     string
	engine     *gin.Engine

	listener net.Listener
	srv      *http.Server
}

func NewServer(d Dispatcher, tr Tray, secret string) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		dispatcher: d,
		tray:       tr,
		secret:     secret,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.Use(s.requireSecret)

	router.GET("/health", s.health)
	router.POST("/actions", s.act)
	router.GET("/presented", s.listPresented)
	router.DELETE("/presented/:id", s.clearPresented)
	router.DELETE("/medications/:id/alerts", s.forgetMedication)

	alarms := router.Group("/alarms")
	{
		alarms.POST("/test", s.testAlarm)
		alarms.POST("/stop-all", s.stopAll)
	}

	s.engine = router
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Listen binds addr and returns the chosen port.
func (s *Server) Listen(addr string) (int, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ln.Addr().(*net.TCPAddr).Port, nil
}

// Serve blocks until Shutdown.
func (s *Server) Serve() error {
	if s.srv == nil {
		return errors.New("server is not listening")
	}
	if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) requireSecret(c *gin.Context) {
	got := c.GetHeader(constants.ControlSecretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing secret"})
		return
	}
	c.Next()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Control request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, Health{
		Status:  "ok",
		Version: constants.Version,
		PID:     os.Getpid(),
	})
}

func (s *Server) act(c *gin.Context) {
	var resp dispatcher.Response
	if err := c.ShouldBindJSON(&resp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// the CLI only knows the id; the payload lives on the presented alert
	if resp.Payload == (models.AlertPayload{}) {
		if entry, ok := s.tray.Presented(resp.AlertID); ok {
			resp.Payload = entry.Payload
		}
	}

	outcome, err := s.dispatcher.Respond(c.Request.Context(), resp)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, outcome)
	case errors.Is(err, dispatcher.ErrMaxSnoozes):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "outcome": outcome})
	case errors.Is(err, dispatcher.ErrUnknownAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, dispatcher.ErrUnknownAlert):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		logger.Error("Action failed", "id", resp.AlertID, "action", resp.ActionIdentifier, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) listPresented(c *gin.Context) {
	ids, err := s.tray.ListPresented(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	alerts := make([]PresentedAlert, 0, len(ids))
	for _, id := range ids {
		entry, ok := s.tray.Presented(id)
		if !ok {
			continue
		}
		alerts = append(alerts, PresentedAlert{
			ID:      id,
			Title:   entry.Title(),
			Body:    entry.Body(),
			Actions: entry.Actions(),
			State:   s.dispatcher.State(id),
			Payload: entry.Payload,
		})
	}
	c.JSON(http.StatusOK, alerts)
}

func (s *Server) clearPresented(c *gin.Context) {
	id := c.Param("id")
	if !s.tray.Clear(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("alert %s is not presented", id)})
		return
	}
	c.Status(http.StatusNoContent)
}

// forgetMedication silences a deleted medication's alerts, including snoozes
// waiting on their delay, and withdraws them from the tray.
func (s *Server) forgetMedication(c *gin.Context) {
	ids := s.dispatcher.ForgetMedication(c.Param("id"))
	for _, id := range ids {
		s.tray.Clear(id)
	}
	c.JSON(http.StatusOK, gin.H{"forgotten": len(ids)})
}

func (s *Server) testAlarm(c *gin.Context) {
	outcome, err := s.dispatcher.StartTestAlarm(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

func (s *Server) stopAll(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stopped": s.dispatcher.StopAll()})
}
