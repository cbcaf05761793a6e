// internal/handlers/payment.go
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"abiahub/internal/models"
	"abiahub/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// PaymentHandler drives the service-request payment flow through
// Flutterwave. Report payments use the same endpoints with entity=report.
type PaymentHandler struct {
	requestCollection *mongo.Collection
	reportCollection  *mongo.Collection
	userCollection    *mongo.Collection
	flutterwave       *services.FlutterwaveService
	auditService      *services.AuditService
	notifications     *services.NotificationService
}

func NewPaymentHandler(requestCollection, reportCollection, userCollection *mongo.Collection, flutterwave *services.FlutterwaveService, auditService *services.AuditService, notifications *services.NotificationService) *PaymentHandler {
	return &PaymentHandler{
		requestCollection: requestCollection,
		reportCollection:  reportCollection,
		userCollection:    userCollection,
		flutterwave:       flutterwave,
		auditService:      auditService,
		notifications:     notifications,
	}
}

type InitializePaymentRequest struct {
	Entity      string `json:"entity" binding:"required,oneof=service_request report"`
	EntityID    string `json:"entity_id" binding:"required"`
	RedirectURL string `json:"redirect_url" binding:"required,url"`
}

// InitializePayment creates a payment link for a pending fee.
func (h *PaymentHandler) InitializePayment(c *gin.Context) {
	var req InitializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	entityID, err := primitive.ObjectIDFromHex(req.EntityID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid entity ID",
			"details": err.Error(),
		})
		return
	}

	userID := c.MustGet("user_id").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var user models.User
	if err := h.userCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "User not found",
			"details": "no user with ID " + userID.Hex(),
		})
		return
	}

	collection, amount, err := h.lookupPayable(ctx, req.Entity, entityID, userID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Payment not available",
			"details": err.Error(),
		})
		return
	}

	txRef := services.NewTxRef()

	initReq := services.PaymentInitRequest{
		TxRef:       txRef,
		Amount:      amount,
		Currency:    "NGN",
		RedirectURL: req.RedirectURL,
	}
	initReq.Customer.Email = user.Email
	initReq.Customer.PhoneNumber = user.Phone
	initReq.Customer.Name = user.GetFullName()
	initReq.Customizations.Title = "AbiaHub"
	initReq.Customizations.Description = fmt.Sprintf("Payment for %s %s", req.Entity, entityID.Hex()[:8])

	link, err := h.flutterwave.InitializePayment(ctx, initReq)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Payment provider error",
			"details": err.Error(),
		})
		return
	}

	_, err = collection.UpdateOne(
		ctx,
		bson.M{"_id": entityID},
		bson.M{"$set": bson.M{
			"payment_status": models.PaymentPending,
			"tx_ref":         txRef,
			"payment_amount": amount,
			"updated_at":     time.Now(),
		}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error recording payment",
			"details": err.Error(),
		})
		return
	}

	h.auditService.RecordChange(ctx, &userID, models.AuditPaymentInitialized, req.Entity, entityID,
		nil, map[string]interface{}{"tx_ref": txRef, "amount": amount},
		c.ClientIP(), c.Request.UserAgent())

	c.JSON(http.StatusOK, gin.H{
		"payment_link": link,
		"tx_ref":       txRef,
		"amount":       amount,
	})
}

type VerifyPaymentRequest struct {
	Entity        string `json:"entity" binding:"required,oneof=service_request report"`
	EntityID      string `json:"entity_id" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
}

// VerifyPayment confirms a transaction with the provider and marks the
// entity paid. The verified amount must cover the recorded fee.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	entityID, err := primitive.ObjectIDFromHex(req.EntityID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid entity ID",
			"details": err.Error(),
		})
		return
	}

	userID := c.MustGet("user_id").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := h.collectionFor(req.Entity)

	var doc struct {
		TxRef         string  `bson:"tx_ref"`
		PaymentAmount float64 `bson:"payment_amount"`
		PaymentStatus string  `bson:"payment_status"`
	}
	if err := collection.FindOne(ctx, bson.M{"_id": entityID}).Decode(&doc); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Record not found",
			"details": "no " + req.Entity + " with ID " + entityID.Hex(),
		})
		return
	}

	if doc.PaymentStatus == models.PaymentPaid {
		c.JSON(http.StatusOK, gin.H{
			"message": "Payment already verified",
			"status":  models.PaymentPaid,
		})
		return
	}

	verification, err := h.flutterwave.VerifyPayment(ctx, req.TransactionID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Payment provider error",
			"details": err.Error(),
		})
		return
	}

	if verification.TxRef != doc.TxRef || verification.Status != "successful" ||
		verification.Currency != "NGN" || verification.Amount < doc.PaymentAmount {
		h.markPaymentFailed(ctx, collection, entityID)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Payment verification failed",
			"details": "the transaction does not match the expected payment",
		})
		return
	}

	now := time.Now()
	_, err = collection.UpdateOne(
		ctx,
		bson.M{"_id": entityID},
		bson.M{"$set": bson.M{
			"payment_status": models.PaymentPaid,
			"transaction_id": verification.TransactionID,
			"payment_date":   now,
			"updated_at":     now,
		}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error recording payment",
			"details": err.Error(),
		})
		return
	}

	h.auditService.RecordChange(ctx, &userID, models.AuditPaymentVerified, req.Entity, entityID,
		map[string]interface{}{"payment_status": doc.PaymentStatus},
		map[string]interface{}{"payment_status": models.PaymentPaid, "transaction_id": verification.TransactionID},
		c.ClientIP(), c.Request.UserAgent())

	if err := h.notifications.Notify(ctx, userID, models.NotificationTypePayment,
		"Payment confirmed",
		fmt.Sprintf("Your payment of NGN %.2f has been confirmed.", verification.Amount),
		&entityID); err != nil {
		c.Error(err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment verified successfully",
		"status":  models.PaymentPaid,
	})
}

func (h *PaymentHandler) collectionFor(entity string) *mongo.Collection {
	if entity == "report" {
		return h.reportCollection
	}
	return h.requestCollection
}

// lookupPayable checks the entity belongs to the caller and has a fee due.
func (h *PaymentHandler) lookupPayable(ctx context.Context, entity string, entityID, userID primitive.ObjectID) (*mongo.Collection, float64, error) {
	collection := h.collectionFor(entity)

	if entity == "report" {
		var report models.Report
		if err := collection.FindOne(ctx, bson.M{"_id": entityID}).Decode(&report); err != nil {
			return nil, 0, fmt.Errorf("report not found")
		}
		if report.ReporterID == nil || *report.ReporterID != userID {
			return nil, 0, fmt.Errorf("report does not belong to you")
		}
		if report.PaymentStatus == models.PaymentPaid {
			return nil, 0, fmt.Errorf("report fee already paid")
		}
		if report.PaymentAmount <= 0 {
			return nil, 0, fmt.Errorf("report has no fee due")
		}
		return collection, report.PaymentAmount, nil
	}

	var request models.ServiceRequest
	if err := collection.FindOne(ctx, bson.M{"_id": entityID}).Decode(&request); err != nil {
		return nil, 0, fmt.Errorf("service request not found")
	}
	if request.ApplicantID != userID {
		return nil, 0, fmt.Errorf("service request does not belong to you")
	}
	if request.PaymentStatus == models.PaymentPaid {
		return nil, 0, fmt.Errorf("service fee already paid")
	}
	if request.PaymentAmount <= 0 {
		return nil, 0, fmt.Errorf("service request has no fee due")
	}
	return collection, request.PaymentAmount, nil
}

func (h *PaymentHandler) markPaymentFailed(ctx context.Context, collection *mongo.Collection, entityID primitive.ObjectID) {
	collection.UpdateOne(
		ctx,
		bson.M{"_id": entityID},
		bson.M{"$set": bson.M{
			"payment_status": models.PaymentFailed,
			"updated_at":     time.Now(),
		}},
	)
}
