package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/loadlane/auction-service/internal/http/middleware"
	"github.com/loadlane/auction-service/internal/model"
	"github.com/loadlane/auction-service/internal/service"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

// Redispatcher re-runs the matching fan-out for one auction, used by the
// operator test endpoint.
type Redispatcher interface {
	Dispatch(ctx context.Context, auction model.Auction)
}

type Handler struct {
	auctions   *service.AuctionService
	carriers   *service.CarrierService
	exports    *service.ExportService
	dispatcher Redispatcher
	log        zerolog.Logger
}

func NewHandler(auctions *service.AuctionService, carriers *service.CarrierService, exports *service.ExportService, dispatcher Redispatcher, log zerolog.Logger) *Handler {
	return &Handler{
		auctions:   auctions,
		carriers:   carriers,
		exports:    exports,
		dispatcher: dispatcher,
		log:        log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/auctions", h.createAuction)
	protected.GET("/auctions/open", h.listOpen)
	protected.GET("/auctions/expired", h.listExpiredUnawarded)
	protected.GET("/auctions/:number", h.getAuction)
	protected.POST("/auctions/:number/offers", h.submitOffer)
	protected.POST("/auctions/:number/award", h.awardAuction)
	protected.POST("/auctions/:number/test-bid", h.testBid)
	protected.GET("/auctions/:number/rate-confirmation", h.rateConfirmation)
	protected.POST("/auctions/export", h.exportArchive)

	protected.GET("/carrier/profile", h.getProfile)
	protected.GET("/carrier/preferences", h.getPreferences)
	protected.PUT("/carrier/preferences", h.updatePreferences)
	protected.GET("/carrier/favorites", h.listFavorites)
	protected.POST("/carrier/favorites/:number", h.addFavorite)
	protected.DELETE("/carrier/favorites/:number", h.removeFavorite)
	protected.GET("/carrier/triggers", h.listTriggers)
	protected.POST("/carrier/triggers", h.createTrigger)
	protected.PATCH("/carrier/triggers/:id", h.setTriggerActive)
	protected.GET("/carrier/notifications", h.listNotifications)
}

type createAuctionRequest struct {
	AuctionNumber string   `json:"auction_number" binding:"required"`
	Stops         []string `json:"stops" binding:"required"`
	DistanceMiles int      `json:"distance_miles" binding:"required"`
	PickupAt      *string  `json:"pickup_at"`
	DeliveryAt    *string  `json:"delivery_at"`
	Tag           string   `json:"tag"`
}

func (h *Handler) createAuction(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pickupAt, err := parseOptionalTime(req.PickupAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pickup_at"})
		return
	}
	deliveryAt, err := parseOptionalTime(req.DeliveryAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delivery_at"})
		return
	}

	auction, err := h.auctions.CreateAuction(c.Request.Context(), service.CreateAuctionInput{
		AuctionNumber: strings.TrimSpace(req.AuctionNumber),
		Stops:         req.Stops,
		DistanceMiles: req.DistanceMiles,
		PickupAt:      pickupAt,
		DeliveryAt:    deliveryAt,
		Tag:           strings.TrimSpace(req.Tag),
		Principal:     principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, auctionResponse(*auction))
}

func (h *Handler) listOpen(c *gin.Context) {
	if _, ok := middleware.MustPrincipal(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	auctions, err := h.auctions.ListOpen(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auctions": auctionsResponse(auctions)})
}

func (h *Handler) listExpiredUnawarded(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	if !principal.IsOperator() {
		h.handleError(c, service.ErrPermissionDenied)
		return
	}

	auctions, err := h.auctions.ListExpiredUnawarded(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auctions": auctionsResponse(auctions)})
}

func (h *Handler) getAuction(c *gin.Context) {
	if _, ok := middleware.MustPrincipal(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	summary, err := h.auctions.GetSummary(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := gin.H{
		"auction":           auctionResponse(summary.Auction),
		"status":            summary.Status,
		"expires_at":        summary.ExpiresAt.UTC().Format(time.RFC3339),
		"remaining_seconds": int(summary.Remaining.Seconds()),
		"offers":            offersResponse(summary.Offers),
	}
	if summary.Award != nil {
		resp["award"] = awardResponse(*summary.Award)
	}
	c.JSON(http.StatusOK, resp)
}

type submitOfferRequest struct {
	AmountCents int64   `json:"amount_cents" binding:"required"`
	Notes       *string `json:"notes"`
}

func (h *Handler) submitOffer(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req submitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	offer, err := h.auctions.SubmitOffer(c.Request.Context(), service.SubmitOfferInput{
		AuctionNumber: c.Param("number"),
		AmountCents:   req.AmountCents,
		Notes:         req.Notes,
		Principal:     principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, offerResponse(*offer))
}

type awardAuctionRequest struct {
	WinnerCarrierID string  `json:"winner_carrier_id" binding:"required"`
	MarginCents     *int64  `json:"margin_cents"`
	Notes           *string `json:"notes"`
}

func (h *Handler) awardAuction(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req awardAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	winnerID, err := uuid.Parse(strings.TrimSpace(req.WinnerCarrierID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid winner_carrier_id"})
		return
	}

	award, err := h.auctions.AwardAuction(c.Request.Context(), service.AwardAuctionInput{
		AuctionNumber:   c.Param("number"),
		WinnerCarrierID: winnerID,
		MarginCents:     req.MarginCents,
		Notes:           req.Notes,
		Principal:       principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, awardResponse(*award))
}

// testBid re-runs the matching fan-out for one auction so operators can
// verify trigger configurations end to end.
func (h *Handler) testBid(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	if !principal.IsOperator() {
		h.handleError(c, service.ErrPermissionDenied)
		return
	}

	summary, err := h.auctions.GetSummary(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	go h.dispatcher.Dispatch(context.Background(), summary.Auction)
	c.JSON(http.StatusAccepted, gin.H{"status": "dispatched"})
}

func (h *Handler) rateConfirmation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	result, err := h.exports.RateConfirmation(c.Request.Context(), principal, c.Param("number"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentTypePDF, result.Content)
}

type exportArchiveRequest struct {
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
}

func (h *Handler) exportArchive(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req exportArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := parseDate(req.PeriodStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_start"})
		return
	}
	end, err := parseDate(req.PeriodEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_end"})
		return
	}

	result, err := h.exports.ExportArchive(c.Request.Context(), service.ExportArchiveInput{
		PeriodStart: start,
		PeriodEnd:   end,
		Principal:   principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentTypeXLSX, result.Content)
}

func (h *Handler) getProfile(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	profile, err := h.carriers.GetProfile(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"carrier_id":   profile.CarrierID,
		"legal_name":   profile.LegalName,
		"mc_number":    profile.MCNumber,
		"contact_name": profile.ContactName,
		"phone":        profile.Phone,
	})
}

func (h *Handler) getPreferences(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	prefs, err := h.carriers.GetPreferences(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, preferencesResponse(prefs))
}

type updatePreferencesRequest struct {
	SimilarLoadAlerts      bool     `json:"similar_load_alerts"`
	StatePreferences       []string `json:"state_preferences"`
	DistanceThresholdMiles int      `json:"distance_threshold_miles" binding:"required"`
	MinMatchScore          int      `json:"min_match_score"`
	PrioritizeBackhaul     bool     `json:"prioritize_backhaul"`
}

func (h *Handler) updatePreferences(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req updatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs, err := h.carriers.UpdatePreferences(c.Request.Context(), service.UpdatePreferencesInput{
		SimilarLoadAlerts:      req.SimilarLoadAlerts,
		StatePreferences:       req.StatePreferences,
		DistanceThresholdMiles: req.DistanceThresholdMiles,
		MinMatchScore:          req.MinMatchScore,
		PrioritizeBackhaul:     req.PrioritizeBackhaul,
		Principal:              principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, preferencesResponse(prefs))
}

func (h *Handler) listFavorites(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	favorites, err := h.carriers.ListFavorites(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": auctionsResponse(favorites)})
}

func (h *Handler) addFavorite(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	if err := h.carriers.AddFavorite(c.Request.Context(), principal, c.Param("number")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) removeFavorite(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	if err := h.carriers.RemoveFavorite(c.Request.Context(), principal, c.Param("number")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listTriggers(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	triggers, err := h.carriers.ListTriggers(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]gin.H, 0, len(triggers))
	for _, t := range triggers {
		out = append(out, triggerResponse(t))
	}
	c.JSON(http.StatusOK, gin.H{"triggers": out})
}

type createTriggerRequest struct {
	Type   string              `json:"type" binding:"required"`
	Config model.TriggerConfig `json:"config"`
}

func (h *Handler) createTrigger(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trigger, err := h.carriers.CreateTrigger(c.Request.Context(), service.CreateTriggerInput{
		Type:      model.TriggerType(strings.TrimSpace(req.Type)),
		Config:    req.Config,
		Principal: principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, triggerResponse(*trigger))
}

type setTriggerActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *Handler) setTriggerActive(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	triggerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trigger id"})
		return
	}

	var req setTriggerActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.carriers.SetTriggerActive(c.Request.Context(), principal, triggerID, *req.Active); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listNotifications(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.carriers.ListNotifications(c.Request.Context(), principal, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]gin.H, 0, len(logs))
	for _, entry := range logs {
		out = append(out, gin.H{
			"auction_number": entry.AuctionNumber,
			"type":           entry.Type,
			"message":        entry.Message,
			"lane":           entry.Lane,
			"sent_at":        entry.SentAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAuctionClosed),
		errors.Is(err, service.ErrAlreadyAwarded),
		errors.Is(err, service.ErrNoOffers):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func auctionResponse(a model.Auction) gin.H {
	resp := gin.H{
		"auction_number": a.AuctionNumber,
		"stops":          a.Stops,
		"distance_miles": a.DistanceMiles,
		"tag":            a.Tag,
		"received_at":    a.ReceivedAt.UTC().Format(time.RFC3339),
		"archived":       a.Archived,
	}
	if a.PickupAt != nil {
		resp["pickup_at"] = a.PickupAt.UTC().Format(time.RFC3339)
	}
	if a.DeliveryAt != nil {
		resp["delivery_at"] = a.DeliveryAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func auctionsResponse(auctions []model.Auction) []gin.H {
	out := make([]gin.H, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, auctionResponse(a))
	}
	return out
}

func offerResponse(o model.Offer) gin.H {
	return gin.H{
		"auction_number": o.AuctionNumber,
		"carrier_id":     o.CarrierID,
		"amount_cents":   o.AmountCents,
		"notes":          o.Notes,
		"outcome":        o.Outcome,
		"created_at":     o.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":     o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func offersResponse(offers []model.Offer) []gin.H {
	out := make([]gin.H, 0, len(offers))
	for _, o := range offers {
		out = append(out, offerResponse(o))
	}
	return out
}

func awardResponse(a model.Award) gin.H {
	return gin.H{
		"auction_number":      a.AuctionNumber,
		"winner_carrier_id":   a.WinnerCarrierID,
		"winner_amount_cents": a.WinnerAmountCents,
		"margin_cents":        a.MarginCents,
		"quoted_cents":        a.QuotedCents(),
		"notes":               a.Notes,
		"awarded_at":          a.AwardedAt.UTC().Format(time.RFC3339),
	}
}

func preferencesResponse(p model.Preferences) gin.H {
	return gin.H{
		"similar_load_alerts":      p.SimilarLoadAlerts,
		"state_preferences":        p.StatePreferences,
		"distance_threshold_miles": p.DistanceThresholdMiles,
		"min_match_score":          p.MinMatchScore,
		"prioritize_backhaul":      p.PrioritizeBackhaul,
	}
}

func triggerResponse(t model.Trigger) gin.H {
	return gin.H{
		"id":         t.ID,
		"type":       t.Type,
		"config":     t.Config,
		"active":     t.Active,
		"created_at": t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func parseOptionalTime(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}
