// Package mockpartners serves deterministic stand-ins for the bank, logistics and supplier APIs.
package mockpartners

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Apurer/procurement-engine/internal/clients/http/bank"
	"github.com/Apurer/procurement-engine/internal/clients/http/logistics"
	"github.com/Apurer/procurement-engine/internal/clients/http/supplier"
)

const (
	DefaultLogisticsAccount = "bulk-logistics-main"
	DefaultEquipmentWeight  = 1200.0
	// pricePerUnit is charged per item quantity, with minimumPrice as the floor.
	pricePerUnit = 0.5
	minimumPrice = 25.0
)

// Server keeps per-key responses so retried requests observe the first outcome.
type Server struct {
	logger           *slog.Logger
	declineAbove     float64
	failEvery        int
	logisticsAccount string
	weights          map[string]float64

	mu        sync.Mutex
	calls     int
	transfers map[string]bank.TransferResponse
	pickups   map[string]logistics.PickupResponse
	shipments int
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDeclineAbove makes the bank decline transfers larger than amount. Zero disables it.
func WithDeclineAbove(amount float64) Option {
	return func(s *Server) { s.declineAbove = amount }
}

// WithFailEvery answers every nth request with 503. Zero disables it.
func WithFailEvery(n int) Option {
	return func(s *Server) { s.failEvery = n }
}

// WithEquipmentWeight fixes the declared weight for supplier.
func WithEquipmentWeight(supplierID string, weight float64) Option {
	return func(s *Server) { s.weights[strings.ToLower(supplierID)] = weight }
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		logisticsAccount: DefaultLogisticsAccount,
		weights:          map[string]float64{},
		transfers:        map[string]bank.TransferResponse{},
		pickups:          map[string]logistics.PickupResponse{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register mounts the partner routes on router.
func (s *Server) Register(router gin.IRouter) {
	router.Use(s.injectFailures)
	router.POST("/bank/transfers", s.transfer)
	router.POST("/logistics/pickup-requests", s.requestPickup)
	router.GET("/suppliers/:supplier/equipment/weight", s.equipmentWeight)
}

func (s *Server) injectFailures(c *gin.Context) {
	s.mu.Lock()
	s.calls++
	fail := s.failEvery > 0 && s.calls%s.failEvery == 0
	s.mu.Unlock()
	if fail {
		s.logger.LogAttrs(c.Request.Context(), slog.LevelWarn, "injected partner failure",
			slog.String("path", c.Request.URL.Path))
		respondError(c, http.StatusServiceUnavailable, "partner temporarily unavailable")
		return
	}
	c.Next()
}

// Post /bank/transfers
func (s *Server) transfer(c *gin.Context) {
	var req bank.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	switch {
	case strings.TrimSpace(req.FromAccount) == "", strings.TrimSpace(req.ToAccount) == "":
		respondError(c, http.StatusBadRequest, "from_account and to_account are required")
		return
	case req.Amount <= 0:
		respondError(c, http.StatusBadRequest, "amount must be greater than zero")
		return
	}

	key := c.GetHeader("Idempotency-Key")
	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.transfers[key]; ok && key != "" {
		c.JSON(http.StatusOK, prior)
		return
	}
	resp := bank.TransferResponse{Success: true, TransactionID: uuid.NewString(), Message: "transfer completed"}
	if s.declineAbove > 0 && req.Amount > s.declineAbove {
		resp = bank.TransferResponse{Message: fmt.Sprintf("amount %.2f exceeds limit %.2f", req.Amount, s.declineAbove)}
	}
	if key != "" {
		s.transfers[key] = resp
	}
	s.logger.LogAttrs(c.Request.Context(), slog.LevelInfo, "bank transfer",
		slog.String("to", req.ToAccount), slog.Float64("amount", req.Amount), slog.Bool("success", resp.Success))
	c.JSON(http.StatusOK, resp)
}

// Post /logistics/pickup-requests
func (s *Server) requestPickup(c *gin.Context) {
	var req logistics.PickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.OriginCompanyID) == "" || len(req.Items) == 0 {
		respondError(c, http.StatusBadRequest, "origin_company_id and at least one item are required")
		return
	}

	key := c.GetHeader("Idempotency-Key")
	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.pickups[key]; ok && key != "" {
		c.JSON(http.StatusOK, prior)
		return
	}
	s.shipments++
	resp := logistics.PickupResponse{
		ShipmentID:  fmt.Sprintf("SHP-%06d", s.shipments),
		BankAccount: s.logisticsAccount,
		Price:       price(req.Items),
	}
	if key != "" {
		s.pickups[key] = resp
	}
	s.logger.LogAttrs(c.Request.Context(), slog.LevelInfo, "pickup booked",
		slog.String("shipment.id", resp.ShipmentID), slog.String("reference", req.ExternalReference))
	c.JSON(http.StatusOK, resp)
}

// Get /suppliers/:supplier/equipment/weight
func (s *Server) equipmentWeight(c *gin.Context) {
	id := strings.TrimSpace(c.Param("supplier"))
	if id == "" {
		respondError(c, http.StatusBadRequest, "supplier is required")
		return
	}
	weight, ok := s.weights[strings.ToLower(id)]
	if !ok {
		weight = DefaultEquipmentWeight
	}
	c.JSON(http.StatusOK, supplier.EquipmentWeight{Supplier: id, Weight: weight})
}

func price(items []logistics.PickupItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Quantity * pricePerUnit
	}
	return math.Round(math.Max(total, minimumPrice)*100) / 100
}

func respondError(c *gin.Context, status int, message string) {
	text := http.StatusText(status)
	c.AbortWithStatusJSON(status, gin.H{"message": message, "status": text})
}
