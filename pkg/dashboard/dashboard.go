package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"netwarden/internal/models"
	"netwarden/pkg/config"
)

// AdmissionInterface is what the API layer needs from the admission
// controller.
type AdmissionInterface interface {
	CheckConnection(addr string) bool
	GetStatus() models.ProtectionStatus
	UpdateThresholds(updates map[string]float64)
}

// CaptureInterface is what the API layer needs from the capture pipeline.
type CaptureInterface interface {
	StartCapture()
	StopCapture()
	Clear()
	GetRecentPackets(limit int) []models.PacketEvent
	GetStatistics() models.CaptureStats
	Running() bool
}

// Dashboard serves the HTTP API and the live packet feed.
type Dashboard struct {
	config    *config.Config
	admission AdmissionInterface
	capture   CaptureInterface
	server    *http.Server
	upgrader  websocket.Upgrader
}

// New creates a dashboard server over the two engines.
func New(cfg *config.Config, adm AdmissionInterface, capt CaptureInterface) (*Dashboard, error) {
	return &Dashboard{
		config:    cfg,
		admission: adm,
		capture:   capt,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool, same-host clients
			},
		},
	}, nil
}

// Router builds the HTTP route table.
func (d *Dashboard) Router() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.Use(d.admissionMiddleware)
	api.HandleFunc("/ddos/status", d.handleStatus).Methods("GET")
	api.HandleFunc("/ddos/settings", d.handleSettings).Methods("POST")
	api.HandleFunc("/packets/recent", d.handleRecentPackets).Methods("GET")
	api.HandleFunc("/packets/stats", d.handlePacketStats).Methods("GET")
	api.HandleFunc("/packets/start", d.handleStartCapture).Methods("POST")
	api.HandleFunc("/packets/stop", d.handleStopCapture).Methods("POST")
	api.HandleFunc("/packets/clear", d.handleClearCapture).Methods("POST")

	router.HandleFunc("/ws/packets", d.handlePacketSocket)

	return router
}

// Start starts the dashboard server.
func (d *Dashboard) Start(ctx context.Context) error {
	d.server = &http.Server{
		Addr:    d.config.Dashboard.ListenAddr,
		Handler: d.Router(),
	}

	go func() {
		log.Printf("Dashboard server starting on %s", d.config.Dashboard.ListenAddr)
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Dashboard server error: %v", err)
		}
	}()

	return nil
}

// Stop shuts the dashboard server down gracefully.
func (d *Dashboard) Stop() error {
	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return d.server.Shutdown(ctx)
	}
	return nil
}

// admissionMiddleware runs every API request through the admission
// controller; rejected sources get 429.
func (d *Dashboard) admissionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !d.admission.CheckConnection(host) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (d *Dashboard) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.admission.GetStatus())
}

func (d *Dashboard) handleSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid settings payload"})
		return
	}
	d.admission.UpdateThresholds(updates)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (d *Dashboard) handleRecentPackets(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, d.capture.GetRecentPackets(limit))
}

func (d *Dashboard) handlePacketStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.capture.GetStatistics())
}

func (d *Dashboard) handleStartCapture(w http.ResponseWriter, r *http.Request) {
	d.capture.StartCapture()
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Packet capture started"})
}

func (d *Dashboard) handleStopCapture(w http.ResponseWriter, r *http.Request) {
	d.capture.StopCapture()
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Packet capture stopped"})
}

func (d *Dashboard) handleClearCapture(w http.ResponseWriter, r *http.Request) {
	d.capture.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Packet capture cleared"})
}

// handlePacketSocket streams newly captured packets to a websocket
// client, one frame per packet, on a short polling interval.
func (d *Dashboard) handlePacketSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("WebSocket client connected: %s", r.RemoteAddr)

	ticker := time.NewTicker(d.config.Dashboard.UpdateInterval)
	defer ticker.Stop()

	var watermark time.Time
	for range ticker.C {
		for _, event := range d.capture.GetRecentPackets(100) {
			if !event.Timestamp.After(watermark) {
				continue
			}
			watermark = event.Timestamp
			if err := conn.WriteJSON(models.FrameFor(&event)); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
