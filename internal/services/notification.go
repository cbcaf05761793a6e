// internal/services/notification.go
package services

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"abiahub/internal/config"
	"abiahub/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// NotificationService stores notifications and fans them out over the
// available delivery channels: push, email, and the websocket hub.
type NotificationService struct {
	notifications *mongo.Collection
	deviceTokens  *mongo.Collection
	users         *mongo.Collection
	cfg           *config.Config
	client        *resty.Client

	// Broadcast is set by the websocket hub at startup.
	Broadcast func(userID primitive.ObjectID, notification *models.Notification)
}

func NewNotificationService(db *mongo.Database, cfg *config.Config) *NotificationService {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second)

	return &NotificationService{
		notifications: db.Collection("notifications"),
		deviceTokens:  db.Collection("device_tokens"),
		users:         db.Collection("users"),
		cfg:           cfg,
		client:        client,
	}
}

// Notify persists a notification and attempts delivery. Storage failure is
// an error; delivery failure is only logged since the stored copy remains
// visible in the user's feed.
func (s *NotificationService) Notify(ctx context.Context, userID primitive.ObjectID, notifType, title, body string, relatedID *primitive.ObjectID) error {
	notification := &models.Notification{
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Body:      body,
		RelatedID: relatedID,
		CreatedAt: time.Now(),
	}

	result, err := s.notifications.InsertOne(ctx, notification)
	if err != nil {
		return fmt.Errorf("storing notification: %w", err)
	}
	notification.ID = result.InsertedID.(primitive.ObjectID)

	if s.Broadcast != nil {
		s.Broadcast(userID, notification)
	}

	go s.deliverPush(userID, notification)

	return nil
}

// NotifyUsers sends the same notification to several recipients.
func (s *NotificationService) NotifyUsers(ctx context.Context, userIDs []primitive.ObjectID, notifType, title, body string, relatedID *primitive.ObjectID) {
	for _, userID := range userIDs {
		if err := s.Notify(ctx, userID, notifType, title, body, relatedID); err != nil {
			logrus.WithError(err).WithField("user_id", userID.Hex()).Error("failed to notify user")
		}
	}
}

// NotifyAdmins sends a notification to every ADMIN user. Used for
// operational alerts like failed reward disbursements.
func (s *NotificationService) NotifyAdmins(ctx context.Context, title, body string, relatedID *primitive.ObjectID) error {
	cursor, err := s.users.Find(ctx, bson.M{
		"role":       models.RoleAdmin,
		"deleted_at": nil,
	})
	if err != nil {
		return fmt.Errorf("finding admins: %w", err)
	}
	defer cursor.Close(ctx)

	var admins []models.User
	if err := cursor.All(ctx, &admins); err != nil {
		return fmt.Errorf("decoding admins: %w", err)
	}

	for _, admin := range admins {
		if err := s.Notify(ctx, admin.ID, models.NotificationTypeSystem, title, body, relatedID); err != nil {
			logrus.WithError(err).WithField("admin_id", admin.ID.Hex()).Error("failed to notify admin")
		}
	}

	if s.cfg.AdminEmail != "" {
		go s.sendEmail(s.cfg.AdminEmail, title, body)
	}

	return nil
}

func (s *NotificationService) deliverPush(userID primitive.ObjectID, notification *models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := s.deviceTokens.Find(ctx, bson.M{
		"user_id":   userID,
		"is_active": true,
	})
	if err != nil {
		logrus.WithError(err).Error("failed to load device tokens")
		return
	}
	defer cursor.Close(ctx)

	var tokens []models.DeviceToken
	if err := cursor.All(ctx, &tokens); err != nil {
		logrus.WithError(err).Error("failed to decode device tokens")
		return
	}

	if len(tokens) == 0 || s.cfg.PushServerKey == "" {
		return
	}

	for _, token := range tokens {
		payload := map[string]interface{}{
			"to": token.Token,
			"notification": map[string]string{
				"title": notification.Title,
				"body":  notification.Body,
			},
			"data": map[string]string{
				"type":       notification.Type,
				"related_id": relatedIDHex(notification.RelatedID),
			},
		}

		resp, err := s.client.R().
			SetHeader("Authorization", "key="+s.cfg.PushServerKey).
			SetHeader("Content-Type", "application/json").
			SetBody(payload).
			Post(s.cfg.PushEndpoint)

		if err != nil {
			logrus.WithError(err).WithField("token_id", token.ID.Hex()).Warn("push delivery failed")
			continue
		}
		if resp.StatusCode() == 404 || resp.StatusCode() == 410 {
			// Token no longer registered with the push provider.
			s.deactivateToken(token.ID)
		}
	}

	_, err = s.notifications.UpdateByID(ctx, notification.ID, bson.M{
		"$set": bson.M{"is_sent": true},
	})
	if err != nil {
		logrus.WithError(err).Error("failed to mark notification sent")
	}
}

func (s *NotificationService) deactivateToken(tokenID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.deviceTokens.UpdateByID(ctx, tokenID, bson.M{
		"$set": bson.M{"is_active": false, "updated_at": time.Now()},
	})
	if err != nil {
		logrus.WithError(err).Error("failed to deactivate device token")
	}
}

func (s *NotificationService) sendEmail(to, subject, body string) {
	if s.cfg.SMTPHost == "" {
		return
	}

	msg := []byte("From: " + s.cfg.FromEmail + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)

	if err := smtp.SendMail(addr, auth, s.cfg.FromEmail, []string{to}, msg); err != nil {
		logrus.WithError(err).WithField("to", to).Error("failed to send email")
	}
}

func relatedIDHex(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}
