// Package http exposes the procurement service and workflow queue over gin.
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/application"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
	"github.com/Apurer/procurement-engine/internal/platform/settings"
	apierrors "github.com/Apurer/procurement-engine/internal/shared/errors"
)

// IdempotencyKeyHeader lets clients retry POST /orders without placing a second order.
const IdempotencyKeyHeader = "Idempotency-Key"

// SettingsStore is the read-write view of the workflow settings.
type SettingsStore interface {
	ports.SettingsProvider
	Update(p settings.Patch) (ports.Settings, error)
}

// API serves /v1/procurement.
type API struct {
	service   ports.Service
	queue     ports.WorkflowQueue
	settings  SettingsStore
	responder *apierrors.Responder
}

func NewAPI(service ports.Service, queue ports.WorkflowQueue, store SettingsStore) *API {
	return &API{
		service:   service,
		queue:     queue,
		settings:  store,
		responder: apierrors.NewResponder(mapProcurementError),
	}
}

// Register mounts the procurement routes under /v1/procurement.
func (api *API) Register(router gin.IRouter) {
	group := router.Group("/v1/procurement")
	group.POST("/orders", api.PlaceOrder)
	group.GET("/orders", api.ListOrders)
	group.GET("/orders/:orderId", api.GetOrder)
	group.POST("/deliveries", api.RecordDelivery)
	group.GET("/queue", api.QueueStatus)
	group.POST("/queue/process", api.ProcessQueue)
	group.POST("/queue/resync", api.ResyncQueue)
	group.PATCH("/queue/settings", api.UpdateSettings)
}

// Post /v1/procurement/orders
// Place a purchase order and enqueue it for processing
func (api *API) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	input := toPlaceOrderInput(req)
	input.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)
	order, err := api.service.PlaceOrder(c.Request.Context(), input)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fromDomainOrder(order))
}

// Get /v1/procurement/orders
func (api *API) ListOrders(c *gin.Context) {
	orders, err := api.service.ListOrders(c.Request.Context())
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromDomainOrders(orders))
}

// Get /v1/procurement/orders/:orderId
func (api *API) GetOrder(c *gin.Context) {
	id, ok := api.parseIDParam(c, "orderId")
	if !ok {
		return
	}
	order, err := api.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			api.responder.Respond(c, apierrors.NewNotFoundProblem("purchase order", id))
			return
		}
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromDomainOrder(order))
}

// Post /v1/procurement/deliveries
// Record goods dropped off against a shipment
func (api *API) RecordDelivery(c *gin.Context) {
	var req DeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	order, err := api.service.RecordDelivery(c.Request.Context(), req.ShipmentID, req.Quantity)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromDomainOrder(order))
}

// Get /v1/procurement/queue
func (api *API) QueueStatus(c *gin.Context) {
	c.JSON(http.StatusOK, toQueueStatus(api.queue.QueueCount(), api.settings.Current()))
}

// Post /v1/procurement/queue/process
// Run one drain now, independent of the periodic driver
func (api *API) ProcessQueue(c *gin.Context) {
	if err := api.queue.ProcessQueue(c.Request.Context()); err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toQueueStatus(api.queue.QueueCount(), api.settings.Current()))
}

// Post /v1/procurement/queue/resync
// Re-enqueue every non-terminal order from storage
func (api *API) ResyncQueue(c *gin.Context) {
	if err := api.queue.PopulateQueueFromDatabase(c.Request.Context()); err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toQueueStatus(api.queue.QueueCount(), api.settings.Current()))
}

// Patch /v1/procurement/queue/settings
func (api *API) UpdateSettings(c *gin.Context) {
	var req SettingsPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	next, err := api.settings.Update(toSettingsPatch(req))
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toQueueStatus(api.queue.QueueCount(), next))
}

func (api *API) parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		api.responder.Respond(c, apierrors.ErrValidation.
			WithDetail(name+" must be a positive integer").
			WithExtension("field", name))
		return 0, false
	}
	return id, true
}

func mapProcurementError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, application.ErrInvalidInput), errors.Is(err, settings.ErrInvalid):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrConflict):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}
