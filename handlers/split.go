package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"splitpay-backend/cache"
	"splitpay-backend/middleware"
	"splitpay-backend/models"
	"splitpay-backend/services"
)

type SplitHandler struct {
	svc   *services.SplitService
	cache *cache.Cache
}

func NewSplitHandler(svc *services.SplitService, c *cache.Cache) *SplitHandler {
	return &SplitHandler{svc: svc, cache: c}
}

// respondError maps service error kinds to HTTP statuses. Internal errors
// get a generic body; details stay in the server logs.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logrus.WithFields(logrus.Fields{"path": c.FullPath(), "error": err}).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func parseListFilter(c *gin.Context) models.ListFilter {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	return models.ListFilter{
		Status: c.Query("status"),
		Limit:  limit,
		Skip:   skip,
	}
}

// Create handles POST /split/create.
func (h *SplitHandler) Create(c *gin.Context) {
	var req models.CreateSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creator := middleware.CallerWallet(c)
	resp, err := h.svc.CreateSplit(c.Request.Context(), creator, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.invalidate(c, creator, req.Participants)

	c.JSON(http.StatusCreated, resp)
}

// Post handles POST /split/create, which shares its segment with the
// split id routes.
func (h *SplitHandler) Post(c *gin.Context) {
	if c.Param("splitId") != "create" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	h.Create(c)
}

// Get handles GET /split/:splitId. The same segment also serves the
// /split/creator and /split/participant listings.
func (h *SplitHandler) Get(c *gin.Context) {
	switch c.Param("splitId") {
	case "creator":
		h.ListByCreator(c)
		return
	case "participant":
		h.ListByParticipant(c)
		return
	}

	splitID, err := strconv.ParseInt(c.Param("splitId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid split ID"})
		return
	}

	sp, err := h.svc.GetSplitByID(c.Request.Context(), splitID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"split":                 sp,
		"total_paid":            sp.TotalPaid(),
		"completion_percentage": sp.CompletionPercentage(),
		"is_expired":            sp.IsExpired(),
	})
}

// List handles GET /split: the merged creator+participant view for the
// caller, served from redis when fresh.
func (h *SplitHandler) List(c *gin.Context) {
	wallet := middleware.CallerWallet(c)
	filter := parseListFilter(c)

	key := cache.SplitListKey(wallet, filter.Status, filter.Limit, filter.Skip)
	var cached []*models.SplitView
	if hit, err := h.cache.Get(c.Request.Context(), key, &cached); err == nil && hit {
		c.JSON(http.StatusOK, gin.H{"splits": cached, "cached": true})
		return
	}

	views, err := h.svc.GetSplits(c.Request.Context(), wallet, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.cache.Set(c.Request.Context(), key, views, cache.SplitListTTL); err != nil {
		logrus.WithField("error", err).Warn("failed to cache split list")
	}

	c.JSON(http.StatusOK, gin.H{"splits": views})
}

// ListByCreator handles GET /split/creator.
func (h *SplitHandler) ListByCreator(c *gin.Context) {
	splits, err := h.svc.GetSplitsByCreator(c.Request.Context(), middleware.CallerWallet(c), parseListFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"splits": splits})
}

// ListByParticipant handles GET /split/participant.
func (h *SplitHandler) ListByParticipant(c *gin.Context) {
	splits, err := h.svc.GetSplitsByParticipant(c.Request.Context(), middleware.CallerWallet(c), parseListFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"splits": splits})
}

// Pay handles POST /split/:splitId/pay: settles the caller's own share.
func (h *SplitHandler) Pay(c *gin.Context) {
	splitID, err := strconv.ParseInt(c.Param("splitId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid split ID"})
		return
	}

	var req struct {
		PaymentTxHash string `json:"paymentTxHash"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet := middleware.CallerWallet(c)
	sp, err := h.svc.MarkParticipantPaid(c.Request.Context(), splitID, wallet, req.PaymentTxHash)
	if err != nil {
		respondError(c, err)
		return
	}

	h.invalidate(c, sp.CreatorAddress, nil)
	if err := h.cache.InvalidateWallet(c.Request.Context(), wallet); err != nil {
		logrus.WithField("error", err).Warn("failed to invalidate split cache")
	}

	c.JSON(http.StatusOK, gin.H{"split": sp, "completed": sp.IsCompleted})
}

// Remind handles POST /split/:splitId/remind, creator only.
func (h *SplitHandler) Remind(c *gin.Context) {
	splitID, err := strconv.ParseInt(c.Param("splitId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid split ID"})
		return
	}

	reminded, err := h.svc.RemindUnpaid(c.Request.Context(), splitID, middleware.CallerWallet(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reminded": reminded})
}

func (h *SplitHandler) invalidate(c *gin.Context, creator string, participants []models.ParticipantInput) {
	ctx := c.Request.Context()
	if err := h.cache.InvalidateWallet(ctx, creator); err != nil {
		logrus.WithField("error", err).Warn("failed to invalidate split cache")
		return
	}
	for _, p := range participants {
		if err := h.cache.InvalidateWallet(ctx, models.NormalizeAddress(p.WalletAddress)); err != nil {
			logrus.WithField("error", err).Warn("failed to invalidate split cache")
			return
		}
	}
}
