// internal/services/africastalking.go
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"abiahub/internal/config"
	"abiahub/internal/models"
	"abiahub/internal/utils"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AfricasTalkingService covers SMS delivery, airtime disbursement and the
// USSD report-submission flow.
type AfricasTalkingService struct {
	client   *resty.Client
	username string
	senderID string
	sessions *mongo.Collection
	reports  *mongo.Collection
}

// USSD session states
const (
	ussdStateMainMenu          = "MAIN_MENU"
	ussdStateReportCategory    = "REPORT_CATEGORY"
	ussdStateReportDescription = "REPORT_DESCRIPTION"
	ussdStateReportLocation    = "REPORT_LOCATION"
	ussdStateReportConfirm     = "REPORT_CONFIRM"
)

// ussdSession keeps the in-progress report between USSD callbacks.
type ussdSession struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	SessionID   string             `bson:"session_id"`
	PhoneNumber string             `bson:"phone_number"`
	State       string             `bson:"state"`
	Category    string             `bson:"category,omitempty"`
	Description string             `bson:"description,omitempty"`
	Location    string             `bson:"location,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

// ussdCategories maps menu digits to report categories, in menu order.
var ussdCategories = []struct {
	Label    string
	Category string
}{
	{"Roads/Infrastructure", models.ReportCategoryInfrastructure},
	{"Security", models.ReportCategorySecurity},
	{"Health", models.ReportCategoryHealth},
	{"Education", models.ReportCategoryEducation},
	{"Environment", models.ReportCategoryEnvironment},
	{"Water/Power", models.ReportCategoryUtilities},
	{"Other", models.ReportCategoryOther},
}

func NewAfricasTalkingService(cfg *config.Config, db *mongo.Database) *AfricasTalkingService {
	client := resty.New().
		SetBaseURL(cfg.ATBaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("apiKey", cfg.ATAPIKey).
		SetHeader("Accept", "application/json")

	return &AfricasTalkingService{
		client:   client,
		username: cfg.ATUsername,
		senderID: cfg.ATSenderID,
		sessions: db.Collection("ussd_sessions"),
		reports:  db.Collection("reports"),
	}
}

// SendSMS delivers a message to one recipient.
func (s *AfricasTalkingService) SendSMS(ctx context.Context, to, message string) error {
	phone := utils.SanitizePhoneNumber(to)
	if phone == "" {
		return fmt.Errorf("invalid phone number: %s", to)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{
			"username": s.username,
			"to":       phone,
			"message":  message,
			"from":     s.senderID,
		}).
		Post("/version1/messaging")

	if err != nil {
		return fmt.Errorf("sending SMS: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("SMS gateway returned %d", resp.StatusCode())
	}

	logrus.WithField("to", phone).Debug("SMS sent")
	return nil
}

// SendAirtime credits airtime to a phone number. Amount is in NGN.
func (s *AfricasTalkingService) SendAirtime(ctx context.Context, to string, amount float64) error {
	phone := utils.SanitizePhoneNumber(to)
	if phone == "" {
		return fmt.Errorf("invalid phone number: %s", to)
	}

	recipients := fmt.Sprintf(`[{"phoneNumber":"%s","amount":"NGN %s"}]`,
		phone, strconv.FormatFloat(amount, 'f', 2, 64))

	var result struct {
		ErrorMessage string `json:"errorMessage"`
		Responses    []struct {
			Status       string `json:"status"`
			ErrorMessage string `json:"errorMessage"`
		} `json:"responses"`
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{
			"username":   s.username,
			"recipients": recipients,
		}).
		SetResult(&result).
		Post("/version1/airtime/send")

	if err != nil {
		return fmt.Errorf("sending airtime: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("airtime gateway returned %d", resp.StatusCode())
	}
	if len(result.Responses) > 0 && result.Responses[0].Status != "Sent" {
		return fmt.Errorf("airtime rejected: %s", result.Responses[0].ErrorMessage)
	}

	return nil
}

// HandleUSSD advances the session state machine and returns the response
// text. Responses starting with "CON" keep the session open, "END" closes it.
func (s *AfricasTalkingService) HandleUSSD(ctx context.Context, sessionID, phoneNumber, text string) (string, error) {
	session, err := s.loadSession(ctx, sessionID, phoneNumber)
	if err != nil {
		return "", err
	}

	// Africa's Talking sends the full input history joined by "*";
	// only the latest segment matters for the current state.
	input := text
	if idx := strings.LastIndex(text, "*"); idx >= 0 {
		input = text[idx+1:]
	}
	input = strings.TrimSpace(input)

	switch session.State {
	case ussdStateMainMenu:
		if input == "" {
			return "CON Welcome to AbiaHub\n1. Report an issue\n2. Check report status", nil
		}
		switch input {
		case "1":
			session.State = ussdStateReportCategory
			if err := s.saveSession(ctx, session); err != nil {
				return "", err
			}
			return "CON Select category:\n" + categoryMenu(), nil
		case "2":
			return s.reportStatusSummary(ctx, phoneNumber)
		default:
			return "CON Invalid choice.\n1. Report an issue\n2. Check report status", nil
		}

	case ussdStateReportCategory:
		choice, err := strconv.Atoi(input)
		if err != nil || choice < 1 || choice > len(ussdCategories) {
			return "CON Invalid choice. Select category:\n" + categoryMenu(), nil
		}
		session.Category = ussdCategories[choice-1].Category
		session.State = ussdStateReportDescription
		if err := s.saveSession(ctx, session); err != nil {
			return "", err
		}
		return "CON Describe the issue briefly:", nil

	case ussdStateReportDescription:
		if len(input) < 5 {
			return "CON Description too short. Describe the issue briefly:", nil
		}
		session.Description = utils.SanitizeText(input)
		session.State = ussdStateReportLocation
		if err := s.saveSession(ctx, session); err != nil {
			return "", err
		}
		return "CON Where is the issue located? (area or landmark)", nil

	case ussdStateReportLocation:
		if input == "" {
			return "CON Where is the issue located? (area or landmark)", nil
		}
		session.Location = utils.SanitizeText(input)
		session.State = ussdStateReportConfirm
		if err := s.saveSession(ctx, session); err != nil {
			return "", err
		}
		return fmt.Sprintf("CON Confirm report:\nCategory: %s\nLocation: %s\n1. Submit\n2. Cancel",
			session.Category, session.Location), nil

	case ussdStateReportConfirm:
		switch input {
		case "1":
			report, err := s.submitUSSDReport(ctx, session)
			if err != nil {
				logrus.WithError(err).Error("failed to submit USSD report")
				return "END Submission failed. Please try again later.", nil
			}
			s.deleteSession(ctx, session.SessionID)
			return fmt.Sprintf("END Report submitted. Reference: %s\nYou will receive SMS updates.",
				report.ID.Hex()[:8]), nil
		case "2":
			s.deleteSession(ctx, session.SessionID)
			return "END Report cancelled.", nil
		default:
			return "CON 1. Submit\n2. Cancel", nil
		}
	}

	// Unknown state, start over.
	s.deleteSession(ctx, session.SessionID)
	return "END Session expired. Please dial again.", nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func categoryMenu() string {
	var b strings.Builder
	for i, c := range ussdCategories {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Label)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *AfricasTalkingService) loadSession(ctx context.Context, sessionID, phoneNumber string) (*ussdSession, error) {
	var session ussdSession
	err := s.sessions.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		now := time.Now()
		session = ussdSession{
			SessionID:   sessionID,
			PhoneNumber: phoneNumber,
			State:       ussdStateMainMenu,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return &session, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading USSD session: %w", err)
	}
	return &session, nil
}

func (s *AfricasTalkingService) saveSession(ctx context.Context, session *ussdSession) error {
	session.UpdatedAt = time.Now()
	_, err := s.sessions.UpdateOne(ctx,
		bson.M{"session_id": session.SessionID},
		bson.M{"$set": session},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("saving USSD session: %w", err)
	}
	return nil
}

func (s *AfricasTalkingService) deleteSession(ctx context.Context, sessionID string) {
	if _, err := s.sessions.DeleteOne(ctx, bson.M{"session_id": sessionID}); err != nil {
		logrus.WithError(err).Warn("failed to delete USSD session")
	}
}

// submitUSSDReport creates a report from a completed USSD session.
func (s *AfricasTalkingService) submitUSSDReport(ctx context.Context, session *ussdSession) (*models.Report, error) {
	title := fmt.Sprintf("%s issue at %s", titleCase(session.Category), session.Location)
	return s.submitOfflineReport(ctx, session.PhoneNumber, models.ChannelUSSD,
		session.Category, title, session.Description, session.Location, "")
}

// ParseSMSReport extracts a report command from an inbound message.
// Expected shape: "REPORT <CATEGORY> <description>". An unknown category
// token folds into the description under OTHER. ok is false when the text
// is not a report command or carries no usable description.
func ParseSMSReport(text string) (category, description string, ok bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) < 2 || !strings.EqualFold(fields[0], "REPORT") {
		return "", "", false
	}

	rest := fields[1:]
	category = models.ReportCategoryOther
	if models.IsValidCategory(strings.ToUpper(rest[0])) {
		category = strings.ToUpper(rest[0])
		rest = rest[1:]
	}

	description = utils.SanitizeText(strings.Join(rest, " "))
	if len(description) < 5 {
		return "", "", false
	}
	return category, description, true
}

// HandleInboundSMS turns a structured inbound message into a report.
// Returns a nil report when the text is not a report command.
func (s *AfricasTalkingService) HandleInboundSMS(ctx context.Context, from, text string) (*models.Report, error) {
	phone := utils.SanitizePhoneNumber(from)
	if phone == "" {
		return nil, fmt.Errorf("invalid sender number: %s", from)
	}

	category, description, ok := ParseSMSReport(text)
	if !ok {
		return nil, nil
	}

	title := fmt.Sprintf("%s issue reported via SMS", titleCase(category))
	return s.submitOfflineReport(ctx, phone, models.ChannelSMS, category, title, description, "", text)
}

// submitOfflineReport creates a report for a channel that has no account.
// Offline reports carry no account, coordinates or media; officials triage
// them from the textual location.
func (s *AfricasTalkingService) submitOfflineReport(ctx context.Context, phone, channel, category, title, description, address, originalText string) (*models.Report, error) {
	now := time.Now()
	report := &models.Report{
		Title:             title,
		Description:       description,
		Category:          category,
		Priority:          models.PriorityMedium,
		Status:            models.ReportStatusPending,
		Address:           address,
		SubmissionChannel: channel,
		OriginalText:      originalText,
		PaymentStatus:     models.PaymentNotRequired,
		StatusHistory:     []models.StatusChange{},
		UpVotes:           []primitive.ObjectID{},
		Comments:          []models.ReportComment{},
		Subscribers:       []primitive.ObjectID{},
		Images:            []string{},
		Videos:            []string{},
		VoiceNotes:        []string{},
		ReporterPhone:     phone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	result, err := s.reports.InsertOne(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("inserting %s report: %w", channel, err)
	}
	report.ID = result.InsertedID.(primitive.ObjectID)

	go func() {
		smsCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		msg := fmt.Sprintf("AbiaHub: your report %s has been received and is pending review.", report.ID.Hex()[:8])
		if err := s.SendSMS(smsCtx, phone, msg); err != nil {
			logrus.WithError(err).Warn("failed to send confirmation SMS")
		}
	}()

	return report, nil
}

// reportStatusSummary lists the latest reports submitted from this phone.
func (s *AfricasTalkingService) reportStatusSummary(ctx context.Context, phoneNumber string) (string, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(3)

	cursor, err := s.reports.Find(ctx, bson.M{
		"reporter_phone": phoneNumber,
	}, opts)
	if err != nil {
		return "", fmt.Errorf("finding reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []models.Report
	if err := cursor.All(ctx, &reports); err != nil {
		return "", fmt.Errorf("decoding reports: %w", err)
	}

	if len(reports) == 0 {
		return "END No reports found for this number.", nil
	}

	var b strings.Builder
	b.WriteString("END Your recent reports:\n")
	for _, r := range reports {
		fmt.Fprintf(&b, "%s: %s\n", r.ID.Hex()[:8], r.Status)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
