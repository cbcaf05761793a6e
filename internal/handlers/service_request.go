// internal/handlers/service_request.go
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

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

type ServiceRequestHandler struct {
	serviceCollection   *mongo.Collection
	requestCollection   *mongo.Collection
	notificationService *services.NotificationService
	auditService        *services.AuditService
	cache               *middleware.ResponseCache
}

func NewServiceRequestHandler(serviceCollection, requestCollection *mongo.Collection, notificationService *services.NotificationService, auditService *services.AuditService, cache *middleware.ResponseCache) *ServiceRequestHandler {
	return &ServiceRequestHandler{
		serviceCollection:   serviceCollection,
		requestCollection:   requestCollection,
		notificationService: notificationService,
		auditService:        auditService,
		cache:               cache,
	}
}

// ListServices returns the active service catalog.
func (h *ServiceRequestHandler) ListServices(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := h.serviceCollection.Find(ctx,
		bson.M{"is_active": true},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching services",
			"details": err.Error(),
		})
		return
	}
	defer cursor.Close(ctx)

	var catalog []models.Service
	if err := cursor.All(ctx, &catalog); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error decoding services",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"services": catalog,
		"count":    len(catalog),
	})
}

type CreateServiceRequest struct {
	Name              string   `json:"name" binding:"required,max=200"`
	Description       string   `json:"description" binding:"required"`
	Category          string   `json:"category" binding:"required,oneof=CERTIFICATE PERMIT REGISTRATION TAX GRANT OTHER"`
	Fee               float64  `json:"fee"`
	ProcessingDays    int      `json:"processing_days"`
	RequiredDocuments []string `json:"required_documents"`
}

// CreateService adds a catalog entry. Restricted to service managers.
func (h *ServiceRequestHandler) CreateService(c *gin.Context) {
	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	now := time.Now()
	service := models.Service{
		Name:              req.Name,
		Description:       req.Description,
		Category:          req.Category,
		Fee:               req.Fee,
		ProcessingDays:    req.ProcessingDays,
		RequiredDocuments: req.RequiredDocuments,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := h.serviceCollection.InsertOne(ctx, service)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error creating service",
			"details": err.Error(),
		})
		return
	}
	service.ID = result.InsertedID.(primitive.ObjectID)

	h.cache.Invalidate("/api/v1/services")

	c.JSON(http.StatusCreated, service)
}

type ApplyRequest struct {
	ServiceID string   `json:"service_id" binding:"required"`
	LGAID     string   `json:"lga_id" binding:"required"`
	Details   string   `json:"details" binding:"required,min=20"`
	Documents []string `json:"documents"`
}

// Apply files a service request. The catalog fee is copied onto the
// request; payment goes through the payment endpoints afterwards.
func (h *ServiceRequestHandler) Apply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	serviceID, err := primitive.ObjectIDFromHex(req.ServiceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid service ID",
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var service models.Service
	err = h.serviceCollection.FindOne(ctx, bson.M{"_id": serviceID, "is_active": true}).Decode(&service)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Service not found",
				"details": "no active service with ID " + req.ServiceID,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching service",
			"details": err.Error(),
		})
		return
	}

	if len(req.Documents) < len(service.RequiredDocuments) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Missing documents",
			"details": fmt.Sprintf("this service requires %d document(s)", len(service.RequiredDocuments)),
		})
		return
	}

	paymentStatus := models.PaymentNotRequired
	if service.Fee > 0 {
		paymentStatus = models.PaymentPending
	}

	now := time.Now()
	request := models.ServiceRequest{
		ServiceID:     serviceID,
		ApplicantID:   userID,
		LGAID:         lgaID,
		Details:       utils.SanitizeText(req.Details),
		Documents:     ensureSlice(req.Documents),
		Status:        models.RequestStatusPending,
		PaymentStatus: paymentStatus,
		PaymentAmount: service.Fee,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	result, err := h.requestCollection.InsertOne(ctx, request)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error creating request",
			"details": err.Error(),
		})
		return
	}
	request.ID = result.InsertedID.(primitive.ObjectID)

	h.cache.Invalidate("/api/v1/services")

	c.JSON(http.StatusCreated, request)
}

// GetMyRequests lists the caller's applications.
func (h *ServiceRequestHandler) GetMyRequests(c *gin.Context) {
	userID := c.MustGet("user_id").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := h.requestCollection.Find(ctx,
		bson.M{"applicant_id": userID, "deleted_at": nil},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching requests",
			"details": err.Error(),
		})
		return
	}
	defer cursor.Close(ctx)

	var requests []models.ServiceRequest
	if err := cursor.All(ctx, &requests); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error decoding requests",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"count":    len(requests),
	})
}

// GetRequests lists applications for processing officials.
func (h *ServiceRequestHandler) GetRequests(c *gin.Context) {
	type RequestFilters struct {
		Status    string `form:"status"`
		ServiceID string `form:"service_id"`
		LGAID     string `form:"lga_id"`
		Page      int    `form:"page"`
		Limit     int    `form:"limit"`
	}

	var filters RequestFilters
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

	query := bson.M{"deleted_at": nil}
	if filters.Status != "" {
		query["status"] = filters.Status
	}
	if filters.ServiceID != "" {
		if serviceID, err := primitive.ObjectIDFromHex(filters.ServiceID); err == nil {
			query["service_id"] = serviceID
		}
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

	cursor, err := h.requestCollection.Find(ctx, query, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching requests",
			"details": err.Error(),
		})
		return
	}
	defer cursor.Close(ctx)

	var requests []models.ServiceRequest
	if err := cursor.All(ctx, &requests); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error decoding requests",
			"details": err.Error(),
		})
		return
	}

	total, _ := h.requestCollection.CountDocuments(ctx, query)

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"pagination": gin.H{
			"page":        filters.Page,
			"limit":       filters.Limit,
			"total":       total,
			"total_pages": (total + int64(filters.Limit) - 1) / int64(filters.Limit),
		},
	})
}

type UpdateRequestStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PROCESSING APPROVED REJECTED COMPLETED"`
	Note   string `json:"note,omitempty"`
}

// UpdateRequestStatus moves an application through its workflow.
// Paid-for services cannot start processing until the fee clears.
func (h *ServiceRequestHandler) UpdateRequestStatus(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request ID",
			"details": err.Error(),
		})
		return
	}

	var req UpdateRequestStatusRequest
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

	var request models.ServiceRequest
	err = h.requestCollection.FindOne(ctx, bson.M{"_id": requestID, "deleted_at": nil}).Decode(&request)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Request not found",
				"details": "no request with ID " + requestID.Hex(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching request",
			"details": err.Error(),
		})
		return
	}

	if req.Status == models.RequestStatusProcessing && request.PaymentStatus == models.PaymentPending {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Payment required",
			"details": "the service fee must be paid before processing starts",
		})
		return
	}

	oldStatus := request.Status
	if !request.ApplyStatus(req.Status, userID, req.Note) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Invalid status transition",
			"details": fmt.Sprintf("cannot move request from %s to %s", oldStatus, req.Status),
		})
		return
	}

	update := bson.M{
		"status":        request.Status,
		"handled_by":    request.HandledBy,
		"decision_note": request.DecisionNote,
		"updated_at":    request.UpdatedAt,
	}
	if request.CompletedAt != nil {
		update["completed_at"] = request.CompletedAt
	}

	_, err = h.requestCollection.UpdateOne(ctx, bson.M{"_id": requestID}, bson.M{"$set": update})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error updating request",
			"details": err.Error(),
		})
		return
	}

	h.auditService.RecordChange(ctx, &userID, models.AuditRequestUpdated, "service_request", requestID,
		map[string]interface{}{"status": oldStatus},
		map[string]interface{}{"status": req.Status, "note": req.Note},
		c.ClientIP(), c.Request.UserAgent())

	statusText := map[string]string{
		models.RequestStatusProcessing: "is being processed",
		models.RequestStatusApproved:   "has been approved",
		models.RequestStatusRejected:   "has been rejected",
		models.RequestStatusCompleted:  "is complete",
	}[req.Status]

	if err := h.notificationService.Notify(ctx, request.ApplicantID, models.NotificationTypeService,
		"Service request update",
		fmt.Sprintf("Your application %s %s.", requestID.Hex()[:8], statusText),
		&requestID); err != nil {
		c.Error(err)
	}

	h.cache.Invalidate("/api/v1/services")

	c.JSON(http.StatusOK, gin.H{
		"message": "Request updated successfully",
		"status":  req.Status,
	})
}
