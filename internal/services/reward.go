// internal/services/reward.go
package services

import (
	"context"
	"fmt"
	"time"

	"abiahub/internal/config"
	"abiahub/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxRewardAttempts = 3

// RewardService creates pending rewards and disburses them as airtime in
// batches. Failures past the retry limit raise an admin alert.
type RewardService struct {
	rewards       *mongo.Collection
	users         *mongo.Collection
	audits        *AuditService
	notifications *NotificationService
	airtime       *AfricasTalkingService
	cfg           *config.Config
}

func NewRewardService(db *mongo.Database, cfg *config.Config, notifications *NotificationService, airtime *AfricasTalkingService, audits *AuditService) *RewardService {
	return &RewardService{
		rewards:       db.Collection("rewards"),
		users:         db.Collection("users"),
		audits:        audits,
		notifications: notifications,
		airtime:       airtime,
		cfg:           cfg,
	}
}

// Grant records a pending reward for a qualifying action. Duplicate grants
// for the same reference and action are ignored.
func (s *RewardService) Grant(ctx context.Context, userID primitive.ObjectID, actionType string, amount float64, referenceID primitive.ObjectID, referenceType string) error {
	count, err := s.rewards.CountDocuments(ctx, bson.M{
		"user_id":      userID,
		"action_type":  actionType,
		"reference_id": referenceID,
	})
	if err != nil {
		return fmt.Errorf("checking existing reward: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	reward := models.Reward{
		UserID:        userID,
		Amount:        amount,
		ActionType:    actionType,
		ReferenceID:   referenceID,
		ReferenceType: referenceType,
		Status:        models.RewardStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := s.rewards.InsertOne(ctx, reward); err != nil {
		return fmt.Errorf("creating reward: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     userID.Hex(),
		"action_type": actionType,
		"amount":      amount,
	}).Info("reward granted")
	return nil
}

// ProcessBatch claims up to batchSize pending rewards and disburses them.
// Returns the number of rewards processed (successfully or not).
func (s *RewardService) ProcessBatch(ctx context.Context, batchSize int) (int, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(batchSize))

	cursor, err := s.rewards.Find(ctx, bson.M{"status": models.RewardStatusPending}, opts)
	if err != nil {
		return 0, fmt.Errorf("finding pending rewards: %w", err)
	}

	var pending []models.Reward
	if err := cursor.All(ctx, &pending); err != nil {
		return 0, fmt.Errorf("decoding pending rewards: %w", err)
	}

	processed := 0
	for i := range pending {
		reward := &pending[i]

		// Claim the reward so concurrent processors skip it.
		res, err := s.rewards.UpdateOne(ctx,
			bson.M{"_id": reward.ID, "status": models.RewardStatusPending},
			bson.M{"$set": bson.M{"status": models.RewardStatusProcessing, "updated_at": time.Now()}},
		)
		if err != nil || res.ModifiedCount == 0 {
			continue
		}

		s.processOne(ctx, reward)
		processed++
	}

	return processed, nil
}

func (s *RewardService) processOne(ctx context.Context, reward *models.Reward) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": reward.UserID}).Decode(&user)
	if err != nil {
		s.fail(ctx, reward, "user not found")
		return
	}
	if user.Phone == "" {
		s.fail(ctx, reward, "user has no phone number")
		return
	}

	if err := s.airtime.SendAirtime(ctx, user.Phone, reward.Amount); err != nil {
		s.retryOrFail(ctx, reward, err.Error())
		return
	}

	now := time.Now()
	_, err = s.rewards.UpdateByID(ctx, reward.ID, bson.M{
		"$set": bson.M{
			"status":       models.RewardStatusProcessed,
			"processed_at": now,
			"updated_at":   now,
		},
	})
	if err != nil {
		logrus.WithError(err).Error("failed to mark reward processed")
		return
	}

	s.audits.Record(ctx, models.AuditLog{
		Action:   models.AuditRewardProcessed,
		Entity:   "reward",
		EntityID: reward.ID,
		NewValue: map[string]interface{}{"amount": reward.Amount, "user_id": reward.UserID.Hex()},
	})

	if err := s.notifications.Notify(ctx, reward.UserID, models.NotificationTypeReward,
		"Reward credited",
		fmt.Sprintf("You have been credited NGN %.2f airtime for your contribution.", reward.Amount),
		&reward.ReferenceID); err != nil {
		logrus.WithError(err).Warn("failed to notify reward recipient")
	}
}

// retryOrFail puts the reward back in the queue until the attempt limit,
// then fails it permanently.
func (s *RewardService) retryOrFail(ctx context.Context, reward *models.Reward, reason string) {
	attempts := reward.Attempts + 1
	if attempts < maxRewardAttempts {
		_, err := s.rewards.UpdateByID(ctx, reward.ID, bson.M{
			"$set": bson.M{
				"status":         models.RewardStatusPending,
				"attempts":       attempts,
				"failure_reason": reason,
				"updated_at":     time.Now(),
			},
		})
		if err != nil {
			logrus.WithError(err).Error("failed to requeue reward")
		}
		return
	}
	reward.Attempts = attempts
	s.fail(ctx, reward, reason)
}

func (s *RewardService) fail(ctx context.Context, reward *models.Reward, reason string) {
	_, err := s.rewards.UpdateByID(ctx, reward.ID, bson.M{
		"$set": bson.M{
			"status":         models.RewardStatusFailed,
			"attempts":       reward.Attempts,
			"failure_reason": reason,
			"updated_at":     time.Now(),
		},
	})
	if err != nil {
		logrus.WithError(err).Error("failed to mark reward failed")
	}

	s.audits.Record(ctx, models.AuditLog{
		Action:   models.AuditRewardFailed,
		Entity:   "reward",
		EntityID: reward.ID,
		NewValue: map[string]interface{}{"reason": reason, "user_id": reward.UserID.Hex()},
	})

	// Failed disbursements need manual intervention.
	if err := s.notifications.NotifyAdmins(ctx,
		"Reward disbursement failed",
		fmt.Sprintf("Reward %s (NGN %.2f, user %s) failed: %s",
			reward.ID.Hex(), reward.Amount, reward.UserID.Hex(), reason),
		&reward.ID); err != nil {
		logrus.WithError(err).Error("failed to alert admins about failed reward")
	}

	logrus.WithFields(logrus.Fields{
		"reward_id": reward.ID.Hex(),
		"reason":    reason,
	}).Error("reward disbursement failed")
}

// Run processes batches continuously until the context is cancelled.
// delay is the pause between batches.
func (s *RewardService) Run(ctx context.Context, batchSize int, delay time.Duration) {
	logrus.WithFields(logrus.Fields{
		"batch_size": batchSize,
		"delay":      delay,
	}).Info("reward processor started")

	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("reward processor stopped")
			return
		case <-ticker.C:
			n, err := s.ProcessBatch(ctx, batchSize)
			if err != nil {
				logrus.WithError(err).Error("reward batch failed")
				continue
			}
			if n > 0 {
				logrus.WithField("processed", n).Info("reward batch completed")
			}
		}
	}
}
