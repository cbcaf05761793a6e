// internal/handlers/stats.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"abiahub/internal/models"
	"abiahub/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type StatsHandler struct {
	statsService   *services.StatsService
	userCollection *mongo.Collection
}

func NewStatsHandler(statsService *services.StatsService, userCollection *mongo.Collection) *StatsHandler {
	return &StatsHandler{
		statsService:   statsService,
		userCollection: userCollection,
	}
}

// GetReportStats returns the dashboard snapshot, optionally scoped to an
// LGA with ?lga_id=. LGA officials are always pinned to their own LGA.
func (h *StatsHandler) GetReportStats(c *gin.Context) {
	var lgaID *primitive.ObjectID
	if raw := c.Query("lga_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid LGA ID",
				"details": err.Error(),
			})
			return
		}
		lgaID = &id
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if models.RoleFromString(c.GetString("role")) == models.RoleLGAOfficial {
		userID := c.MustGet("user_id").(primitive.ObjectID)

		var official models.User
		if err := h.userCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&official); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Error loading profile",
				"details": err.Error(),
			})
			return
		}
		if official.LGAID == nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "No LGA assigned",
				"details": "your account has no LGA on record",
			})
			return
		}
		lgaID = official.LGAID
	}

	result, err := h.statsService.ReportStats(ctx, lgaID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error calculating statistics",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *StatsHandler) GetRewardStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := h.statsService.RewardStats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error calculating statistics",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
