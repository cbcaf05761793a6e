// internal/handlers/location.go
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

type LocationHandler struct {
	lgaCollection      *mongo.Collection
	wardCollection     *mongo.Collection
	landmarkCollection *mongo.Collection
}

func NewLocationHandler(lgaCollection, wardCollection, landmarkCollection *mongo.Collection) *LocationHandler {
	return &LocationHandler{
		lgaCollection:      lgaCollection,
		wardCollection:     wardCollection,
		landmarkCollection: landmarkCollection,
	}
}

// ListLGAs returns all local government areas. Public, heavily cached.
func (h *LocationHandler) ListLGAs(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := h.lgaCollection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching LGAs",
			"details": err.Error(),
		})
		return
	}
	defer cursor.Close(ctx)

	var lgas []models.LGA
	if err := cursor.All(ctx, &lgas); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error decoding LGAs",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lgas":  lgas,
		"count": len(lgas),
	})
}

// ListWards returns the wards in one LGA.
func (h *LocationHandler) ListWards(c *gin.Context) {
	lgaID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid LGA ID",
			"details": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := h.wardCollection.Find(ctx, bson.M{"lga_id": lgaID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching wards",
			"details": err.Error(),
		})
		return
	}
	defer cursor.Close(ctx)

	var wards []models.Ward
	if err := cursor.All(ctx, &wards); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error decoding wards",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wards": wards,
		"count": len(wards),
	})
}

// ListLandmarks returns the well-known points in one LGA, used when an
// exact address is hard to give.
func (h *LocationHandler) ListLandmarks(c *gin.Context) {
	lgaID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid LGA ID",
			"details": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := h.landmarkCollection.Find(ctx, bson.M{"lga_id": lgaID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching landmarks",
			"details": err.Error(),
		})
		return
	}
	defer cursor.Close(ctx)

	var landmarks []models.Landmark
	if err := cursor.All(ctx, &landmarks); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error decoding landmarks",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"landmarks": landmarks,
		"count":     len(landmarks),
	})
}
