// internal/handlers/ussd.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"abiahub/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// USSDHandler receives Africa's Talking gateway callbacks. These endpoints
// are called by the gateway, not by end users, so responses are plain text
// in the gateway's CON/END protocol.
type USSDHandler struct {
	atService *services.AfricasTalkingService
}

func NewUSSDHandler(atService *services.AfricasTalkingService) *USSDHandler {
	return &USSDHandler{atService: atService}
}

// HandleCallback processes a USSD step. The gateway posts form fields
// sessionId, phoneNumber and text on every keypress.
func (h *USSDHandler) HandleCallback(c *gin.Context) {
	sessionID := c.PostForm("sessionId")
	phoneNumber := c.PostForm("phoneNumber")
	text := c.PostForm("text")

	if sessionID == "" || phoneNumber == "" {
		c.String(http.StatusBadRequest, "END Invalid request")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	response, err := h.atService.HandleUSSD(ctx, sessionID, phoneNumber, text)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("USSD handling failed")
		c.String(http.StatusOK, "END Service temporarily unavailable. Please try again.")
		return
	}

	c.String(http.StatusOK, response)
}

// HandleInboundSMS processes inbound messages from the SMS gateway.
// Structured texts ("REPORT <CATEGORY> <description>") become reports;
// anything else is acknowledged and dropped. The gateway retries non-200
// responses, so failures are acknowledged too.
func (h *USSDHandler) HandleInboundSMS(c *gin.Context) {
	from := c.PostForm("from")
	text := c.PostForm("text")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report, err := h.atService.HandleInboundSMS(ctx, from, text)
	if err != nil {
		logrus.WithError(err).WithField("from", from).Error("inbound SMS handling failed")
		c.JSON(http.StatusOK, gin.H{"message": "received"})
		return
	}
	if report == nil {
		logrus.WithFields(logrus.Fields{
			"from": from,
			"len":  len(text),
		}).Info("inbound SMS ignored")
		c.JSON(http.StatusOK, gin.H{"message": "received"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "report created",
		"report_id": report.ID.Hex(),
	})
}
