// internal/handlers/verification.go
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

type VerificationHandler struct {
	userCollection  *mongo.Collection
	verifyMeService *services.VerifyMeService
}

func NewVerificationHandler(userCollection *mongo.Collection, verifyMeService *services.VerifyMeService) *VerificationHandler {
	return &VerificationHandler{
		userCollection:  userCollection,
		verifyMeService: verifyMeService,
	}
}

type VerifyNINRequest struct {
	NIN string `json:"nin" binding:"required,nin"`
}

type VerifyBVNRequest struct {
	BVN string `json:"bvn" binding:"required,bvn"`
}

// VerifyNIN checks the caller's NIN against the registry. The raw number is
// checked and discarded; only the verification flag is stored.
func (h *VerificationHandler) VerifyNIN(c *gin.Context) {
	var req VerifyNINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
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

	if user.NINVerified {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Already verified",
			"details": "your NIN has already been verified",
		})
		return
	}

	result, err := h.verifyMeService.VerifyNIN(ctx, req.NIN, user.FirstName, user.LastName)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Verification service unavailable",
			"details": err.Error(),
		})
		return
	}

	if !result.Verified {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Verification failed",
			"details": "the NIN could not be matched to your identity",
		})
		return
	}

	now := time.Now()
	_, err = h.userCollection.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{
			"nin_verified":          true,
			"nin_verification_date": now,
			"updated_at":            now,
		}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error saving verification",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "NIN verified successfully",
		"verified": true,
	})
}

func (h *VerificationHandler) VerifyBVN(c *gin.Context) {
	var req VerifyBVNRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
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

	if user.BVNVerified {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Already verified",
			"details": "your BVN has already been verified",
		})
		return
	}

	result, err := h.verifyMeService.VerifyBVN(ctx, req.BVN, user.FirstName, user.LastName)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Verification service unavailable",
			"details": err.Error(),
		})
		return
	}

	if !result.Verified {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Verification failed",
			"details": "the BVN could not be matched to your identity",
		})
		return
	}

	now := time.Now()
	_, err = h.userCollection.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{
			"bvn_verified":          true,
			"bvn_verification_date": now,
			"updated_at":            now,
		}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error saving verification",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "BVN verified successfully",
		"verified": true,
	})
}
