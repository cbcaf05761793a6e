// internal/handlers/audit.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"abiahub/internal/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AuditHandler struct {
	auditCollection *mongo.Collection
}

func NewAuditHandler(auditCollection *mongo.Collection) *AuditHandler {
	return &AuditHandler{auditCollection: auditCollection}
}

// GetAuditLogs returns the audit trail, filterable by entity and actor.
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	type AuditFilters struct {
		Entity   string `form:"entity"`
		EntityID string `form:"entity_id"`
		UserID   string `form:"user_id"`
		Action   string `form:"action"`
		Page     int    `form:"page"`
		Limit    int    `form:"limit"`
	}

	var filters AuditFilters
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
		filters.Limit = 50
	}

	query := bson.M{}
	if filters.Entity != "" {
		query["entity"] = filters.Entity
	}
	if filters.Action != "" {
		query["action"] = filters.Action
	}
	if filters.EntityID != "" {
		if entityID, err := primitive.ObjectIDFromHex(filters.EntityID); err == nil {
			query["entity_id"] = entityID
		}
	}
	if filters.UserID != "" {
		if userID, err := primitive.ObjectIDFromHex(filters.UserID); err == nil {
			query["user_id"] = userID
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((filters.Page - 1) * filters.Limit)).
		SetLimit(int64(filters.Limit))

	cursor, err := h.auditCollection.Find(ctx, query, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching audit logs",
			"details": err.Error(),
		})
		return
	}
	defer cursor.Close(ctx)

	var logs []models.AuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error decoding audit logs",
			"details": err.Error(),
		})
		return
	}

	total, _ := h.auditCollection.CountDocuments(ctx, query)

	c.JSON(http.StatusOK, gin.H{
		"logs": logs,
		"pagination": gin.H{
			"page":        filters.Page,
			"limit":       filters.Limit,
			"total":       total,
			"total_pages": (total + int64(filters.Limit) - 1) / int64(filters.Limit),
		},
	})
}
