// internal/handlers/users.go
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

type UserHandler struct {
	userCollection *mongo.Collection
}

func NewUserHandler(userCollection *mongo.Collection) *UserHandler {
	return &UserHandler{userCollection: userCollection}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := c.MustGet("user_id").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	err := h.userCollection.FindOne(ctx, bson.M{"_id": userID, "deleted_at": nil}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "User not found",
				"details": "no user with ID " + userID.Hex(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Database error",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := c.MustGet("user_id").(primitive.ObjectID)

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	// Privileged and identity fields are managed elsewhere.
	for _, field := range []string{
		"email", "password_hash", "role", "is_blocked",
		"nin_verified", "nin_verification_date",
		"bvn_verified", "bvn_verification_date",
		"_id", "created_at", "deleted_at",
	} {
		delete(updates, field)
	}
	updates["updated_at"] = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := h.userCollection.UpdateOne(
		ctx,
		bson.M{"_id": userID, "deleted_at": nil},
		bson.M{"$set": updates},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error updating profile",
			"details": err.Error(),
		})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "User not found",
			"details": "no user with ID " + userID.Hex(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
	})
}

type UpdateRoleRequest struct {
	Role       string `json:"role" binding:"required"`
	LGAID      string `json:"lga_id,omitempty"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}

// UpdateUserRole promotes or demotes a user. Admin only; admins cannot
// change accounts at or above their own level except themselves.
func (h *UserHandler) UpdateUserRole(c *gin.Context) {
	targetID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid user ID",
			"details": err.Error(),
		})
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	newRole := models.UserRole(req.Role)
	if !newRole.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid role",
			"details": "unknown role: " + req.Role,
		})
		return
	}

	actorRole := models.RoleFromString(c.GetString("role"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var target models.User
	err = h.userCollection.FindOne(ctx, bson.M{"_id": targetID, "deleted_at": nil}).Decode(&target)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "User not found",
				"details": "no user with ID " + targetID.Hex(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Database error",
			"details": err.Error(),
		})
		return
	}

	if !actorRole.CanManageUser(target.Role) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Insufficient permissions",
			"details": "cannot manage a user of equal or higher rank",
		})
		return
	}

	update := bson.M{
		"role":       newRole,
		"department": req.Department,
		"position":   req.Position,
		"updated_at": time.Now(),
	}
	if req.LGAID != "" {
		lgaID, err := primitive.ObjectIDFromHex(req.LGAID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid LGA ID",
				"details": err.Error(),
			})
			return
		}
		update["lga_id"] = lgaID
	}

	_, err = h.userCollection.UpdateOne(ctx, bson.M{"_id": targetID}, bson.M{"$set": update})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error updating role",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Role updated successfully",
		"role":    newRole,
	})
}

// BlockUser toggles the blocked flag on an account.
func (h *UserHandler) BlockUser(c *gin.Context) {
	targetID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid user ID",
			"details": err.Error(),
		})
		return
	}

	type BlockRequest struct {
		Blocked bool `json:"blocked"`
	}
	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := h.userCollection.UpdateOne(
		ctx,
		bson.M{"_id": targetID, "deleted_at": nil},
		bson.M{"$set": bson.M{"is_blocked": req.Blocked, "updated_at": time.Now()}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error updating user",
			"details": err.Error(),
		})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "User not found",
			"details": "no user with ID " + targetID.Hex(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"blocked": req.Blocked,
	})
}

// ListUsers returns a paginated user list for administration.
func (h *UserHandler) ListUsers(c *gin.Context) {
	type UserFilters struct {
		Role  string `form:"role"`
		LGAID string `form:"lga_id"`
		Page  int    `form:"page"`
		Limit int    `form:"limit"`
	}

	var filters UserFilters
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
	if filters.Role != "" {
		query["role"] = filters.Role
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

	cursor, err := h.userCollection.Find(ctx, query, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching users",
			"details": err.Error(),
		})
		return
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error decoding users",
			"details": err.Error(),
		})
		return
	}

	total, _ := h.userCollection.CountDocuments(ctx, query)

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"pagination": gin.H{
			"page":        filters.Page,
			"limit":       filters.Limit,
			"total":       total,
			"total_pages": (total + int64(filters.Limit) - 1) / int64(filters.Limit),
		},
	})
}
