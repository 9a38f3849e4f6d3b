package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/meal-tickets/internal/api/dto"
	"github.com/spec-kit/meal-tickets/internal/service"
	apperrors "github.com/spec-kit/meal-tickets/pkg/util/errorutil"
)

// TicketsHandler exposes ticket issuance, consumption, listing and stats.
type TicketsHandler struct {
	issuance    *service.IssuanceService
	consumption *service.ConsumptionService
	query       *service.QueryService
	stats       *service.StatsService
}

// TicketsHandlerDependencies bundles the services behind the ticket routes.
type TicketsHandlerDependencies struct {
	Issuance    *service.IssuanceService
	Consumption *service.ConsumptionService
	Query       *service.QueryService
	Stats       *service.StatsService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(deps TicketsHandlerDependencies) *TicketsHandler {
	return &TicketsHandler{
		issuance:    deps.Issuance,
		consumption: deps.Consumption,
		query:       deps.Query,
		stats:       deps.Stats,
	}
}

// CreateTickets POST /api/tickets.
func (h *TicketsHandler) CreateTickets(c *fiber.Ctx) error {
	var req dto.CreateTicketsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ownerID := strings.TrimSpace(req.OwnerID)
	if ownerID == "" || req.Price == nil {
		return apperrors.NewValidationError("owner_id and price required", nil)
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	views, err := h.issuance.CreateTickets(c.UserContext(), ownerID, *req.Price, quantity)
	if err != nil {
		return err
	}
	resp := dto.CreateTicketsResponse{Tickets: dto.NewTicketResponses(views)}
	if len(views) > 1 {
		resp.Message = fmt.Sprintf("%d tickets created", len(views))
	}
	return c.Status(http.StatusCreated).JSON(resp)
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := service.TicketFilter{
		From:               c.Query("from"),
		To:                 c.Query("to"),
		Status:             c.Query("status"),
		OwnerID:            c.Query("owner_id"),
		OwnerNameContains:  c.Query("owner_name"),
		OwnerEmailContains: c.Query("owner_email"),
	}
	page := service.Pagination{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", 0),
	}

	result, err := h.query.ListTickets(c.UserContext(), filter, page)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketListResponse(result))
}

// ConsumeTicket POST /api/tickets/consume.
func (h *TicketsHandler) ConsumeTicket(c *fiber.Ctx) error {
	var req dto.ConsumeTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	view, err := h.consumption.ConsumeOldest(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(dto.ConsumeTicketResponse{
		Message: "oldest available ticket consumed",
		Ticket:  dto.NewTicketResponse(view),
	})
}

// Stats GET /api/tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	filter := service.StatsFilter{
		From:               c.Query("from"),
		To:                 c.Query("to"),
		OwnerID:            c.Query("owner_id"),
		OwnerNameContains:  c.Query("owner_name"),
		OwnerEmailContains: c.Query("owner_email"),
	}
	stats, err := h.stats.ComputeStats(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketStatsResponse(stats))
}
