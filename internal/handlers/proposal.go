// internal/handlers/proposal.go
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"abiahub/internal/config"
	"abiahub/internal/middleware"
	"abiahub/internal/models"
	"abiahub/internal/services"
	"abiahub/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProposalHandler struct {
	proposalCollection  *mongo.Collection
	notificationService *services.NotificationService
	rewardService       *services.RewardService
	auditService        *services.AuditService
	cache               *middleware.ResponseCache
	cfg                 *config.Config
}

func NewProposalHandler(proposalCollection *mongo.Collection, notificationService *services.NotificationService, rewardService *services.RewardService, auditService *services.AuditService, cache *middleware.ResponseCache, cfg *config.Config) *ProposalHandler {
	return &ProposalHandler{
		proposalCollection:  proposalCollection,
		notificationService: notificationService,
		rewardService:       rewardService,
		auditService:        auditService,
		cache:               cache,
		cfg:                 cfg,
	}
}

type CreateProposalRequest struct {
	Title       string `json:"title" binding:"required,min=10,max=200"`
	Description string `json:"description" binding:"required,min=50"`
	Category    string `json:"category" binding:"required,oneof=ECONOMIC INFRASTRUCTURE EDUCATION HEALTH AGRICULTURE TECHNOLOGY OTHER"`
	LGAID       string `json:"lga_id" binding:"required"`
	Draft       bool   `json:"draft"`
}

func (h *ProposalHandler) CreateProposal(c *gin.Context) {
	var req CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	lgaID, err := primitive.ObjectIDFromHex(req.LGAID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid LGA ID",
			"details": err.Error(),
		})
		return
	}

	userID := c.MustGet("user_id").(primitive.ObjectID)

	status := models.ProposalStatusSubmitted
	if req.Draft {
		status = models.ProposalStatusDraft
	}

	now := time.Now()
	proposal := models.Proposal{
		AuthorID:    userID,
		Title:       utils.SanitizeText(req.Title),
		Description: utils.SanitizeText(req.Description),
		Category:    req.Category,
		Status:      status,
		LGAID:       lgaID,
		Votes:       []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := h.proposalCollection.InsertOne(ctx, proposal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error creating proposal",
			"details": err.Error(),
		})
		return
	}
	proposal.ID = result.InsertedID.(primitive.ObjectID)

	if status == models.ProposalStatusSubmitted {
		if err := h.rewardService.Grant(ctx, userID, models.RewardActionProposalSubmitted,
			h.cfg.RewardReportAmount, proposal.ID, "proposal"); err != nil {
			c.Error(err)
		}
	}

	h.cache.Invalidate("/api/v1/proposals")

	c.JSON(http.StatusCreated, proposal)
}

// SubmitProposal moves a draft into the review queue.
func (h *ProposalHandler) SubmitProposal(c *gin.Context) {
	proposalID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid proposal ID",
			"details": err.Error(),
		})
		return
	}

	userID := c.MustGet("user_id").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var proposal models.Proposal
	err = h.proposalCollection.FindOne(ctx, bson.M{"_id": proposalID, "deleted_at": nil}).Decode(&proposal)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Proposal not found",
				"details": "no proposal with ID " + proposalID.Hex(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching proposal",
			"details": err.Error(),
		})
		return
	}

	if proposal.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Forbidden",
			"details": "only the author can submit this proposal",
		})
		return
	}

	if !models.CanTransitionProposal(proposal.Status, models.ProposalStatusSubmitted) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Invalid status transition",
			"details": fmt.Sprintf("cannot submit a proposal in status %s", proposal.Status),
		})
		return
	}

	_, err = h.proposalCollection.UpdateOne(
		ctx,
		bson.M{"_id": proposalID},
		bson.M{"$set": bson.M{
			"status":     models.ProposalStatusSubmitted,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error submitting proposal",
			"details": err.Error(),
		})
		return
	}

	if err := h.rewardService.Grant(ctx, userID, models.RewardActionProposalSubmitted,
		h.cfg.RewardReportAmount, proposalID, "proposal"); err != nil {
		c.Error(err)
	}

	h.cache.Invalidate("/api/v1/proposals")

	c.JSON(http.StatusOK, gin.H{
		"message": "Proposal submitted successfully",
		"status":  models.ProposalStatusSubmitted,
	})
}

func (h *ProposalHandler) GetProposals(c *gin.Context) {
	type ProposalFilters struct {
		Category string `form:"category"`
		Status   string `form:"status"`
		LGAID    string `form:"lga_id"`
		Page     int    `form:"page"`
		Limit    int    `form:"limit"`
	}

	var filters ProposalFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Limit < 1 || filters.Limit > 100 {
		filters.Limit = 20
	}

	// Drafts are private to their authors.
	query := bson.M{
		"deleted_at": nil,
		"status":     bson.M{"$ne": models.ProposalStatusDraft},
	}
	if filters.Category != "" {
		query["category"] = filters.Category
	}
	if filters.Status != "" && filters.Status != models.ProposalStatusDraft {
		query["status"] = filters.Status
	}
	if filters.LGAID != "" {
		if lgaID, err := primitive.ObjectIDFromHex(filters.LGAID); err == nil {
			query["lga_id"] = lgaID
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((filters.Page - 1) * filters.Limit)).
		SetLimit(int64(filters.Limit))

	cursor, err := h.proposalCollection.Find(ctx, query, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching proposals",
			"details": err.Error(),
		})
		return
	}
	defer cursor.Close(ctx)

	var proposals []models.Proposal
	if err := cursor.All(ctx, &proposals); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error decoding proposals",
			"details": err.Error(),
		})
		return
	}

	total, _ := h.proposalCollection.CountDocuments(ctx, query)

	c.JSON(http.StatusOK, gin.H{
		"proposals": proposals,
		"pagination": gin.H{
			"page":        filters.Page,
			"limit":       filters.Limit,
			"total":       total,
			"total_pages": (total + int64(filters.Limit) - 1) / int64(filters.Limit),
		},
	})
}

func (h *ProposalHandler) GetProposal(c *gin.Context) {
	proposalID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid proposal ID",
			"details": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var proposal models.Proposal
	err = h.proposalCollection.FindOne(ctx, bson.M{"_id": proposalID, "deleted_at": nil}).Decode(&proposal)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Proposal not found",
				"details": "no proposal with ID " + proposalID.Hex(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching proposal",
			"details": err.Error(),
		})
		return
	}

	// Draft proposals are only visible to their author.
	if proposal.Status == models.ProposalStatusDraft {
		userID, exists := c.Get("user_id")
		if !exists || userID.(primitive.ObjectID) != proposal.AuthorID {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Proposal not found",
				"details": "no proposal with ID " + proposalID.Hex(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, proposal)
}

// VoteProposal toggles the caller's support vote.
func (h *ProposalHandler) VoteProposal(c *gin.Context) {
	proposalID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid proposal ID",
			"details": err.Error(),
		})
		return
	}

	userID := c.MustGet("user_id").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var proposal models.Proposal
	err = h.proposalCollection.FindOne(ctx, bson.M{"_id": proposalID, "deleted_at": nil}).Decode(&proposal)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Proposal not found",
				"details": "no proposal with ID " + proposalID.Hex(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching proposal",
			"details": err.Error(),
		})
		return
	}

	if proposal.Status == models.ProposalStatusDraft {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Proposal not open for voting",
			"details": "draft proposals cannot be voted on",
		})
		return
	}

	if proposal.HasUserVoted(userID) {
		_, err = h.proposalCollection.UpdateOne(
			ctx,
			bson.M{"_id": proposalID},
			bson.M{
				"$pull": bson.M{"votes": userID},
				"$inc":  bson.M{"vote_count": -1},
				"$set":  bson.M{"updated_at": time.Now()},
			},
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Error removing vote",
				"details": err.Error(),
			})
			return
		}
		h.cache.Invalidate("/api/v1/proposals")
		c.JSON(http.StatusOK, gin.H{
			"message": "Vote removed",
			"voted":   false,
		})
		return
	}

	_, err = h.proposalCollection.UpdateOne(
		ctx,
		bson.M{"_id": proposalID},
		bson.M{
			"$push": bson.M{"votes": userID},
			"$inc":  bson.M{"vote_count": 1},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error voting",
			"details": err.Error(),
		})
		return
	}

	h.cache.Invalidate("/api/v1/proposals")
	c.JSON(http.StatusOK, gin.H{
		"message": "Vote recorded",
		"voted":   true,
	})
}

type ReviewProposalRequest struct {
	Status string `json:"status" binding:"required,oneof=UNDER_REVIEW APPROVED REJECTED"`
	Note   string `json:"note,omitempty"`
}

// ReviewProposal records an official decision. Approval rewards the author.
func (h *ProposalHandler) ReviewProposal(c *gin.Context) {
	proposalID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid proposal ID",
			"details": err.Error(),
		})
		return
	}

	var req ReviewProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID := c.MustGet("user_id").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var proposal models.Proposal
	err = h.proposalCollection.FindOne(ctx, bson.M{"_id": proposalID, "deleted_at": nil}).Decode(&proposal)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Proposal not found",
				"details": "no proposal with ID " + proposalID.Hex(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching proposal",
			"details": err.Error(),
		})
		return
	}

	oldStatus := proposal.Status
	if !proposal.Review(req.Status, userID, req.Note) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Invalid status transition",
			"details": fmt.Sprintf("cannot move proposal from %s to %s", oldStatus, req.Status),
		})
		return
	}

	_, err = h.proposalCollection.UpdateOne(
		ctx,
		bson.M{"_id": proposalID},
		bson.M{"$set": bson.M{
			"status":      proposal.Status,
			"reviewed_by": proposal.ReviewedBy,
			"review_note": proposal.ReviewNote,
			"reviewed_at": proposal.ReviewedAt,
			"updated_at":  proposal.UpdatedAt,
		}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error reviewing proposal",
			"details": err.Error(),
		})
		return
	}

	h.auditService.RecordChange(ctx, &userID, models.AuditProposalReviewed, "proposal", proposalID,
		map[string]interface{}{"status": oldStatus},
		map[string]interface{}{"status": req.Status, "note": req.Note},
		c.ClientIP(), c.Request.UserAgent())

	statusText := map[string]string{
		models.ProposalStatusUnderReview: "is under review",
		models.ProposalStatusApproved:    "has been approved",
		models.ProposalStatusRejected:    "has been rejected",
	}[req.Status]

	if err := h.notificationService.Notify(ctx, proposal.AuthorID, models.NotificationTypeProposal,
		"Proposal "+req.Status,
		fmt.Sprintf("Your proposal '%s' %s.", proposal.Title, statusText),
		&proposalID); err != nil {
		c.Error(err)
	}

	if req.Status == models.ProposalStatusApproved {
		if err := h.rewardService.Grant(ctx, proposal.AuthorID, models.RewardActionProposalApproved,
			h.cfg.RewardReportAmount*2, proposalID, "proposal"); err != nil {
			c.Error(err)
		}
	}

	h.cache.Invalidate("/api/v1/proposals")

	c.JSON(http.StatusOK, gin.H{
		"message": "Proposal reviewed successfully",
		"status":  req.Status,
	})
}
