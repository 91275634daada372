// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"calorie-bot/internal/bot"
)

type Config struct {
	Host string
	Port int
}

// Handler answers bot events.
type Handler interface {
	Handle(ctx context.Context, ev bot.Event) bot.Reply
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CalorieServer exposes the bot's intents as MCP tools over HTTP, next to
// liveness and readiness probes.
type CalorieServer struct {
	info       protocol.Implementation
	httpServer *http.Server
	handler    Handler
	store      Pinger
	log        logrus.FieldLogger
	tools      map[string]toolHandler
}

func NewCalorieServer(cfg *Config, handler Handler, store Pinger, log logrus.FieldLogger) *CalorieServer {
	s := &CalorieServer{
		info: protocol.Implementation{
			Name:    "calorie-bot",
			Version: "1.0.0",
		},
		handler: handler,
		store:   store,
		log:     log,
	}

	s.registerTools()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: s.Router(),
	}

	return s
}

// Router builds the gin engine; exported for tests.
func (s *CalorieServer) Router() *gin.Engine {
	route := gin.New()
	route.Use(gin.Recovery(), s.requestLogger())

	route.POST("/", s.handleToolCall)
	route.GET("/tools", s.listTools)
	route.GET("/check-live", s.checkAlive)
	route.GET("/read-probe", s.probe)

	return route
}

func (s *CalorieServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("http request")
	}
}

type aliveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *CalorieServer) checkAlive(c *gin.Context) {
	c.JSON(http.StatusOK, aliveResponse{Success: true, Message: "alive"})
}

func (s *CalorieServer) probe(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.log.WithError(err).Warn("read probe failed")
		c.JSON(http.StatusServiceUnavailable, aliveResponse{Success: false, Message: "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, aliveResponse{Success: true, Message: "probe success"})
}

type toolListResponse struct {
	Server protocol.Implementation `json:"server"`
	Tools  []string                `json:"tools"`
}

func (s *CalorieServer) listTools(c *gin.Context) {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	c.JSON(http.StatusOK, toolListResponse{Server: s.info, Tools: names})
}

func (s *CalorieServer) handleToolCall(c *gin.Context) {
	var request protocol.CallToolRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&request); err != nil {
		c.String(http.StatusBadRequest, "Invalid JSON: %v", err)
		return
	}

	tool, ok := s.tools[request.Name]
	if !ok {
		c.String(http.StatusNotFound, "Unknown tool: %s", request.Name)
		return
	}

	result, err := tool(c.Request.Context(), &request)
	if err != nil {
		c.String(http.StatusBadRequest, "%v", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *CalorieServer) Start(ctx context.Context) error {
	s.log.WithField("addr", s.httpServer.Addr).Info("starting calorie bot server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *CalorieServer) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *CalorieServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
