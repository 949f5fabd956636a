package api

import (
	"encoding/json"
	"net/http"
	"time"

	"ledtester/config"
	"ledtester/internal/ws"
	"ledtester/pkg/arduino"
	"ledtester/web"

	"github.com/gin-gonic/gin"
)

// Device is the slice of the serial client the HTTP layer uses; tests
// substitute a stub.
type Device interface {
	Exchange(command string) arduino.Response
	Help() string
	Connected() bool
}

type Handler struct {
	Dev Device
	Hub *ws.Hub
	Cfg *config.Config
}

func NewHandler(dev Device, hub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{Dev: dev, Hub: hub, Cfg: cfg}
}

func (h *Handler) SetupRoutes(r *gin.Engine) {
	r.GET("/", h.Index)

	// One handler serves every command family; the board dispatches on the
	// action field, not the URL.
	r.POST("/test/rgb", h.TestCommand)
	r.POST("/test/led", h.TestCommand)
	r.POST("/test/relay", h.TestCommand)
	r.POST("/test/sensor", h.TestCommand)
	r.POST("/test/config", h.TestCommand)

	r.POST("/help", h.Help)
	r.GET("/status", h.Status)
	r.GET("/info", h.Info)
	r.GET("/console", gin.WrapH(h.Hub))
}

// Index serves the embedded test page.
func (h *Handler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.Index)
}

// TestCommand relays one JSON command to the board and returns its reply
// verbatim. Adapter failures are ordinary replies here: success or error
// lives in the body's status field, the HTTP status stays 200 either way.
// Only a body that is not a JSON object at all stops before the wire.
func (h *Handler) TestCommand(c *gin.Context) {
	var cmd map[string]any
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid command body: " + err.Error()})
		return
	}
	if cmd == nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid command body: expected a JSON object"})
		return
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid command body: " + err.Error()})
		return
	}

	start := time.Now()
	resp := h.Dev.Exchange(string(payload))
	h.Hub.Broadcast(ws.ExchangeEvent(cmd, resp, time.Since(start)))

	c.JSON(http.StatusOK, resp)
}

// Help fetches the board's plain-text command reference. The adapter returns
// a string in every case, so the wrapper shape never changes.
func (h *Handler) Help(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"help": h.Dev.Help()})
}

// Status reports the connection without touching the wire.
func (h *Handler) Status(c *gin.Context) {
	if h.Dev.Connected() {
		c.JSON(http.StatusOK, gin.H{
			"status":    "connected",
			"port":      h.Cfg.SerialPort,
			"baud_rate": h.Cfg.BaudRate,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "disconnected",
		"message": "Arduino not connected",
	})
}

// Info describes the tester itself.
func (h *Handler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"title":        "LED Controller API Tester",
		"version":      "1.0.0",
		"description":  "Web interface for testing Arduino LED Controller API",
		"arduino_port": h.Cfg.SerialPort,
		"features": []string{
			"RGB Strip Control (single pixel, range, all pixels, clear)",
			"Single LED Control (digital/analog)",
			"Relay Control (2 relays)",
			"Sensor Reading (LB analog/digital, RS digital, LM75 temperature)",
			"Configuration (threshold setting)",
			"Complete API testing",
		},
	})
}
