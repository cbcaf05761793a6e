// internal/handlers/report.go
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"abiahub/internal/config"
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

type ReportHandler struct {
	reportCollection    *mongo.Collection
	userCollection      *mongo.Collection
	notificationService *services.NotificationService
	rewardService       *services.RewardService
	auditService        *services.AuditService
	wsHandler           *WebSocketHandler
	cache               *middleware.ResponseCache
	cfg                 *config.Config
}

func NewReportHandler(reportCollection, userCollection *mongo.Collection, notificationService *services.NotificationService, rewardService *services.RewardService, auditService *services.AuditService, wsHandler *WebSocketHandler, cache *middleware.ResponseCache, cfg *config.Config) *ReportHandler {
	return &ReportHandler{
		reportCollection:    reportCollection,
		userCollection:      userCollection,
		notificationService: notificationService,
		rewardService:       rewardService,
		auditService:        auditService,
		wsHandler:           wsHandler,
		cache:               cache,
		cfg:                 cfg,
	}
}

type CreateReportRequest struct {
	Title       string           `json:"title" binding:"required,min=10,max=200"`
	Description string           `json:"description" binding:"required,min=50"`
	Category    string           `json:"category" binding:"required"`
	Priority    string           `json:"priority,omitempty"`
	Location    *models.Location `json:"location,omitempty"`
	Address     string           `json:"address" binding:"required"`
	LGAID       string           `json:"lga_id" binding:"required"`
	Landmark    string           `json:"landmark,omitempty"`
	Images      []string         `json:"images"`
	Videos      []string         `json:"videos"`
	VoiceNotes  []string         `json:"voice_notes"`
	IsAnonymous bool             `json:"is_anonymous"`
	Channel     string           `json:"channel,omitempty"`
	Language    string           `json:"language,omitempty"`
}

type ReportFilters struct {
	Category  string    `form:"category"`
	Status    string    `form:"status"`
	Priority  string    `form:"priority"`
	LGAID     string    `form:"lga_id"`
	Channel   string    `form:"channel"`
	Search    string    `form:"search"`
	DateFrom  time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo    time.Time `form:"date_to" time_format:"2006-01-02"`
	Page      int       `form:"page"`
	Limit     int       `form:"limit"`
	SortBy    string    `form:"sort_by"`
	SortOrder string    `form:"sort_order"`
}

func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if !models.IsValidCategory(req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid category",
			"details": "unknown report category: " + req.Category,
		})
		return
	}

	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !models.IsValidPriority(req.Priority) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid priority",
			"details": "unknown priority: " + req.Priority,
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

	channel := req.Channel
	if channel == "" {
		channel = models.ChannelWeb
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Throttle chronic submitters with too many unresolved reports.
	activeCount, err := h.reportCollection.CountDocuments(ctx, bson.M{
		"reporter_id": userID,
		"status":      bson.M{"$in": []string{models.ReportStatusPending, models.ReportStatusVerified, models.ReportStatusInProgress}},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Database error",
			"details": err.Error(),
		})
		return
	}
	if activeCount >= 20 {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "Too many active reports",
			"details": "wait for some of your reports to be resolved",
		})
		return
	}

	now := time.Now()
	report := models.Report{
		ReporterID:         &userID,
		Title:              utils.SanitizeText(req.Title),
		Description:        utils.SanitizeText(req.Description),
		Category:           req.Category,
		Priority:           req.Priority,
		Status:             models.ReportStatusPending,
		Location:           req.Location,
		Address:            req.Address,
		LGAID:              lgaID,
		Landmark:           req.Landmark,
		Images:             ensureSlice(req.Images),
		Videos:             ensureSlice(req.Videos),
		VoiceNotes:         ensureSlice(req.VoiceNotes),
		SubmissionChannel:  channel,
		SubmissionLanguage: req.Language,
		PaymentStatus:      models.PaymentNotRequired,
		StatusHistory: []models.StatusChange{
			{
				Status:    models.ReportStatusPending,
				ChangedBy: userID,
				ChangedAt: now,
				Note:      "Report submitted",
			},
		},
		UpVotes:     []primitive.ObjectID{},
		Comments:    []models.ReportComment{},
		Subscribers: []primitive.ObjectID{userID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if req.IsAnonymous {
		report.Anonymize()
		report.Subscribers = []primitive.ObjectID{}
	}

	result, err := h.reportCollection.InsertOne(ctx, report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error creating report",
			"details": err.Error(),
		})
		return
	}
	report.ID = result.InsertedID.(primitive.ObjectID)

	h.auditService.RecordChange(ctx, report.ReporterID, models.AuditReportCreated, "report", report.ID,
		nil, map[string]interface{}{"category": report.Category, "channel": channel},
		c.ClientIP(), c.Request.UserAgent())

	// Urgent reports go straight to officials in the LGA.
	if report.Priority == models.PriorityUrgent {
		go h.notifyOfficialsAboutUrgentReport(report)
	}

	// Submission rewards go to identified reporters only.
	if !report.IsAnonymous {
		if err := h.rewardService.Grant(ctx, userID, models.RewardActionReportSubmitted,
			h.cfg.RewardReportAmount, report.ID, "report"); err != nil {
			c.Error(err)
		}
	}

	h.cache.Invalidate("/api/v1/reports")

	c.JSON(http.StatusCreated, report)
}

// reportReadScope returns the visibility constraint for a caller.
// Anonymous callers see anonymous reports only, citizens add their own,
// LGA officials are pinned to their LGA, and roles holding the view-all
// permission are unrestricted.
func reportReadScope(authed bool, userID primitive.ObjectID, role models.UserRole, officialLGA *primitive.ObjectID) bson.M {
	if !authed {
		return bson.M{"is_anonymous": true}
	}
	if role.HasPermission(models.PermissionViewAllReports) {
		return bson.M{}
	}
	if role == models.RoleLGAOfficial && officialLGA != nil {
		return bson.M{"lga_id": *officialLGA}
	}
	return bson.M{"$or": []bson.M{
		{"reporter_id": userID},
		{"is_anonymous": true},
	}}
}

// applyReadScope merges the caller's visibility constraint into query.
// The LGA pin wins over any user-supplied lga_id filter.
func (h *ReportHandler) applyReadScope(ctx context.Context, c *gin.Context, query bson.M) {
	userIDVal, authed := c.Get("user_id")
	var userID primitive.ObjectID
	if authed {
		userID = userIDVal.(primitive.ObjectID)
	}
	role := models.RoleFromString(c.GetString("role"))

	var officialLGA *primitive.ObjectID
	if authed && role == models.RoleLGAOfficial {
		var official models.User
		if err := h.userCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&official); err == nil {
			officialLGA = official.LGAID
		}
	}

	for k, v := range reportReadScope(authed, userID, role, officialLGA) {
		query[k] = v
	}
}

// canViewReport applies the detail visibility rules: anonymous reports are
// public; otherwise the reporter, the assigned official, and any official
// role may view.
func canViewReport(report *models.Report, authed bool, userID primitive.ObjectID, role models.UserRole) bool {
	if report.IsAnonymous {
		return true
	}
	if !authed {
		return false
	}
	if role != models.RoleCitizen {
		return true
	}
	if report.ReporterID != nil && *report.ReporterID == userID {
		return true
	}
	if report.AssignedTo != nil && *report.AssignedTo == userID {
		return true
	}
	return false
}

func (h *ReportHandler) GetReports(c *gin.Context) {
	var filters ReportFilters
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := bson.M{"deleted_at": nil}

	if filters.Category != "" {
		query["category"] = filters.Category
	}
	if filters.Status != "" {
		query["status"] = filters.Status
	}
	if filters.Priority != "" {
		query["priority"] = filters.Priority
	}
	if filters.Channel != "" {
		query["submission_channel"] = filters.Channel
	}
	if filters.LGAID != "" {
		if lgaID, err := primitive.ObjectIDFromHex(filters.LGAID); err == nil {
			query["lga_id"] = lgaID
		}
	}
	if filters.Search != "" {
		query["$text"] = bson.M{"$search": filters.Search}
	}
	if !filters.DateFrom.IsZero() || !filters.DateTo.IsZero() {
		dateQuery := bson.M{}
		if !filters.DateFrom.IsZero() {
			dateQuery["$gte"] = filters.DateFrom
		}
		if !filters.DateTo.IsZero() {
			dateQuery["$lte"] = filters.DateTo
		}
		query["created_at"] = dateQuery
	}

	h.applyReadScope(ctx, c, query)

	sortOptions := options.Find()
	if filters.SortBy != "" {
		sortOrder := 1
		if filters.SortOrder == "desc" {
			sortOrder = -1
		}
		sortOptions.SetSort(bson.D{{Key: filters.SortBy, Value: sortOrder}})
	} else {
		sortOptions.SetSort(bson.D{{Key: "created_at", Value: -1}})
	}

	skip := (filters.Page - 1) * filters.Limit
	sortOptions.SetLimit(int64(filters.Limit))
	sortOptions.SetSkip(int64(skip))

	cursor, err := h.reportCollection.Find(ctx, query, sortOptions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching reports",
			"details": err.Error(),
		})
		return
	}
	defer cursor.Close(ctx)

	var reports []models.Report
	if err := cursor.All(ctx, &reports); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error decoding reports",
			"details": err.Error(),
		})
		return
	}

	total, _ := h.reportCollection.CountDocuments(ctx, query)

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"pagination": gin.H{
			"page":        filters.Page,
			"limit":       filters.Limit,
			"total":       total,
			"total_pages": (total + int64(filters.Limit) - 1) / int64(filters.Limit),
		},
	})
}

func (h *ReportHandler) GetReport(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid report ID",
			"details": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var report models.Report
	err = h.reportCollection.FindOne(ctx, bson.M{"_id": reportID, "deleted_at": nil}).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Report not found",
				"details": "no report with ID " + reportID.Hex(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching report",
			"details": err.Error(),
		})
		return
	}

	userIDVal, authed := c.Get("user_id")
	var userID primitive.ObjectID
	if authed {
		userID = userIDVal.(primitive.ObjectID)
	}
	if !canViewReport(&report, authed, userID, models.RoleFromString(c.GetString("role"))) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Access denied",
			"details": "you do not have permission to view this report",
		})
		return
	}

	h.reportCollection.UpdateOne(
		ctx,
		bson.M{"_id": reportID},
		bson.M{"$inc": bson.M{"view_count": 1}},
	)

	c.JSON(http.StatusOK, report)
}

// GetSimilarReports returns recent reports in the same LGA and category,
// nearest first when coordinates are known.
func (h *ReportHandler) GetSimilarReports(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid report ID",
			"details": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var report models.Report
	err = h.reportCollection.FindOne(ctx, bson.M{"_id": reportID, "deleted_at": nil}).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Report not found",
				"details": "no report with ID " + reportID.Hex(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching report",
			"details": err.Error(),
		})
		return
	}

	userIDVal, authed := c.Get("user_id")
	var userID primitive.ObjectID
	if authed {
		userID = userIDVal.(primitive.ObjectID)
	}
	if !canViewReport(&report, authed, userID, models.RoleFromString(c.GetString("role"))) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Access denied",
			"details": "you do not have permission to view this report",
		})
		return
	}

	query := bson.M{
		"_id":        bson.M{"$ne": reportID},
		"lga_id":     report.LGAID,
		"category":   report.Category,
		"created_at": bson.M{"$gte": time.Now().AddDate(0, 0, -30)},
		"deleted_at": nil,
	}
	h.applyReadScope(ctx, c, query)

	cursor, err := h.reportCollection.Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching similar reports",
			"details": err.Error(),
		})
		return
	}
	defer cursor.Close(ctx)

	var candidates []models.Report
	if err := cursor.All(ctx, &candidates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error decoding reports",
			"details": err.Error(),
		})
		return
	}

	similar := rankSimilar(&report, candidates, 5)

	c.JSON(http.StatusOK, gin.H{
		"reports": similar,
		"count":   len(similar),
	})
}

// rankSimilar orders candidates by distance from the base report when both
// carry coordinates, nearest first, and returns at most limit entries.
// Candidates without coordinates keep their recency order at the end.
func rankSimilar(base *models.Report, candidates []models.Report, limit int) []models.Report {
	if base.Location != nil {
		located := make([]models.Report, 0, len(candidates))
		unlocated := make([]models.Report, 0)
		for _, candidate := range candidates {
			if candidate.Location != nil {
				located = append(located, candidate)
			} else {
				unlocated = append(unlocated, candidate)
			}
		}
		sort.SliceStable(located, func(i, j int) bool {
			return utils.CalculateDistance(*base.Location, *located[i].Location) <
				utils.CalculateDistance(*base.Location, *located[j].Location)
		})
		candidates = append(located, unlocated...)
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// GetMyReports lists the authenticated user's own reports.
func (h *ReportHandler) GetMyReports(c *gin.Context) {
	userID := c.MustGet("user_id").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := h.reportCollection.Find(ctx,
		bson.M{"reporter_id": userID, "deleted_at": nil},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching reports",
			"details": err.Error(),
		})
		return
	}
	defer cursor.Close(ctx)

	var reports []models.Report
	if err := cursor.All(ctx, &reports); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error decoding reports",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}

type UpdateReportRequest struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Landmark    string `json:"landmark,omitempty"`
}

// UpdateReport lets the author amend text fields while the report is open.
func (h *ReportHandler) UpdateReport(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid report ID",
			"details": err.Error(),
		})
		return
	}

	var req UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID := c.MustGet("user_id").(primitive.ObjectID)
	role := models.RoleFromString(c.GetString("role"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var report models.Report
	err = h.reportCollection.FindOne(ctx, bson.M{"_id": reportID, "deleted_at": nil}).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Report not found",
				"details": "no report with ID " + reportID.Hex(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching report",
			"details": err.Error(),
		})
		return
	}

	if !report.CanBeEditedBy(userID, role != models.RoleCitizen) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Forbidden",
			"details": "only the author can edit an open report",
		})
		return
	}

	update := bson.M{"updated_at": time.Now()}
	if req.Title != "" {
		update["title"] = utils.SanitizeText(req.Title)
	}
	if req.Description != "" {
		update["description"] = utils.SanitizeText(req.Description)
	}
	if req.Landmark != "" {
		update["landmark"] = req.Landmark
	}

	_, err = h.reportCollection.UpdateOne(ctx, bson.M{"_id": reportID}, bson.M{"$set": update})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error updating report",
			"details": err.Error(),
		})
		return
	}

	h.auditService.RecordChange(ctx, &userID, models.AuditReportUpdated, "report", reportID,
		nil, map[string]interface{}{"fields": updateKeys(update)},
		c.ClientIP(), c.Request.UserAgent())

	h.cache.Invalidate("/api/v1/reports")

	c.JSON(http.StatusOK, gin.H{
		"message": "Report updated successfully",
	})
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note,omitempty"`
}

// UpdateReportStatus moves a report through the workflow. Transitions
// outside the allowed graph are rejected with 409.
func (h *ReportHandler) UpdateReportStatus(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid report ID",
			"details": err.Error(),
		})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if !models.IsValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid status",
			"details": "unknown status: " + req.Status,
		})
		return
	}

	userID := c.MustGet("user_id").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var report models.Report
	err = h.reportCollection.FindOne(ctx, bson.M{"_id": reportID, "deleted_at": nil}).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Report not found",
				"details": "no report with ID " + reportID.Hex(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching report",
			"details": err.Error(),
		})
		return
	}

	oldStatus := report.Status
	if !report.ApplyStatus(req.Status, userID, req.Note) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Invalid status transition",
			"details": fmt.Sprintf("cannot move report from %s to %s", oldStatus, req.Status),
		})
		return
	}

	update := bson.M{
		"status":     report.Status,
		"updated_at": report.UpdatedAt,
	}
	if report.ResolvedAt != nil {
		update["resolved_at"] = report.ResolvedAt
	}
	if req.Status == models.ReportStatusResolved && req.Note != "" {
		update["resolution_note"] = req.Note
	}

	_, err = h.reportCollection.UpdateOne(
		ctx,
		bson.M{"_id": reportID},
		bson.M{
			"$set":  update,
			"$push": bson.M{"status_history": report.StatusHistory[len(report.StatusHistory)-1]},
		},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error updating status",
			"details": err.Error(),
		})
		return
	}

	h.auditService.RecordChange(ctx, &userID, models.AuditStatusChanged, "report", reportID,
		map[string]interface{}{"status": oldStatus},
		map[string]interface{}{"status": req.Status, "note": req.Note},
		c.ClientIP(), c.Request.UserAgent())

	go h.notifySubscribersAboutStatusChange(report, oldStatus, req.Note)

	h.wsHandler.BroadcastReportEvent(reportID, "report_status_changed", gin.H{
		"old_status": oldStatus,
		"new_status": req.Status,
	})

	// Resolution earns the reporter a second reward.
	if req.Status == models.ReportStatusResolved && report.ReporterID != nil {
		if err := h.rewardService.Grant(ctx, *report.ReporterID, models.RewardActionReportResolved,
			h.cfg.RewardReportAmount, reportID, "report"); err != nil {
			c.Error(err)
		}
	}

	h.cache.Invalidate("/api/v1/reports")

	c.JSON(http.StatusOK, gin.H{
		"message": "Report status updated successfully",
		"status":  req.Status,
	})
}

type AssignReportRequest struct {
	AssignedToID string `json:"assigned_to_id" binding:"required"`
	Department   string `json:"department,omitempty"`
	Note         string `json:"note,omitempty"`
}

func (h *ReportHandler) AssignReport(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid report ID",
			"details": err.Error(),
		})
		return
	}

	var req AssignReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	assignedToID, err := primitive.ObjectIDFromHex(req.AssignedToID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid user ID",
			"details": err.Error(),
		})
		return
	}

	userID := c.MustGet("user_id").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var assignee models.User
	err = h.userCollection.FindOne(ctx, bson.M{"_id": assignedToID, "deleted_at": nil}).Decode(&assignee)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "User not found",
				"details": "no user with ID " + req.AssignedToID,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching user",
			"details": err.Error(),
		})
		return
	}

	if !assignee.IsOfficial() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid assignee",
			"details": "reports can only be assigned to officials",
		})
		return
	}

	result, err := h.reportCollection.UpdateOne(
		ctx,
		bson.M{"_id": reportID, "deleted_at": nil},
		bson.M{"$set": bson.M{
			"assigned_to":   assignedToID,
			"assigned_dept": req.Department,
			"updated_at":    time.Now(),
		}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error assigning report",
			"details": err.Error(),
		})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Report not found",
			"details": "no report with ID " + reportID.Hex(),
		})
		return
	}

	h.auditService.RecordChange(ctx, &userID, models.AuditReportAssigned, "report", reportID,
		nil, map[string]interface{}{"assigned_to": assignedToID.Hex(), "department": req.Department},
		c.ClientIP(), c.Request.UserAgent())

	if err := h.notificationService.Notify(ctx, assignedToID, models.NotificationTypeReport,
		"Report assigned to you",
		fmt.Sprintf("You have been assigned report %s.", reportID.Hex()[:8]),
		&reportID); err != nil {
		c.Error(err)
	}

	h.cache.Invalidate("/api/v1/reports")

	c.JSON(http.StatusOK, gin.H{
		"message":     "Report assigned successfully",
		"assigned_to": assignee.GetFullName(),
	})
}

func (h *ReportHandler) UpvoteReport(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid report ID",
			"details": err.Error(),
		})
		return
	}

	userID := c.MustGet("user_id").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter, update := upvoteClaim(reportID, userID)
	result, err := h.reportCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error upvoting report",
			"details": err.Error(),
		})
		return
	}
	if result.ModifiedCount == 0 {
		count, countErr := h.reportCollection.CountDocuments(ctx, bson.M{"_id": reportID, "deleted_at": nil})
		if countErr == nil && count == 0 {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Report not found",
				"details": "no report with ID " + reportID.Hex(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Already upvoted",
			"details": "you have already upvoted this report",
		})
		return
	}

	upvotes := 0
	var report models.Report
	if err := h.reportCollection.FindOne(ctx, bson.M{"_id": reportID}).Decode(&report); err == nil {
		upvotes = report.UpVoteCount
	}

	h.cache.Invalidate("/api/v1/reports")

	c.JSON(http.StatusOK, gin.H{
		"message":      "Report upvoted successfully",
		"upvote_count": upvotes,
	})
}

// upvoteClaim is the guarded update for a single vote. The filter excludes
// reports the user already voted on, so two concurrent requests cannot
// both insert and the counter only moves when a vote actually landed.
func upvoteClaim(reportID, userID primitive.ObjectID) (filter, update bson.M) {
	filter = bson.M{
		"_id":        reportID,
		"deleted_at": nil,
		"upvotes":    bson.M{"$ne": userID},
	}
	update = bson.M{
		"$addToSet": bson.M{"upvotes": userID},
		"$inc":      bson.M{"upvote_count": 1},
		"$set":      bson.M{"updated_at": time.Now()},
	}
	return filter, update
}

func (h *ReportHandler) RemoveUpvote(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid report ID",
			"details": err.Error(),
		})
		return
	}

	userID := c.MustGet("user_id").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := h.reportCollection.UpdateOne(
		ctx,
		bson.M{"_id": reportID, "upvotes": userID},
		bson.M{
			"$pull": bson.M{"upvotes": userID},
			"$inc":  bson.M{"upvote_count": -1},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error removing upvote",
			"details": err.Error(),
		})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Not upvoted",
			"details": "you have not upvoted this report",
		})
		return
	}

	h.cache.Invalidate("/api/v1/reports")

	c.JSON(http.StatusOK, gin.H{
		"message": "Upvote removed successfully",
	})
}

type AddCommentRequest struct {
	Content string `json:"content" binding:"required,min=1,max=500"`
}

func (h *ReportHandler) AddComment(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid report ID",
			"details": err.Error(),
		})
		return
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID := c.MustGet("user_id").(primitive.ObjectID)
	role := models.RoleFromString(c.GetString("role"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	comment := models.ReportComment{
		ID:         primitive.NewObjectID(),
		AuthorID:   userID,
		Content:    utils.SanitizeText(req.Content),
		IsOfficial: role != models.RoleCitizen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	result, err := h.reportCollection.UpdateOne(
		ctx,
		bson.M{"_id": reportID, "deleted_at": nil},
		bson.M{
			"$push": bson.M{"comments": comment},
			"$set":  bson.M{"updated_at": now},
		},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error adding comment",
			"details": err.Error(),
		})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Report not found",
			"details": "no report with ID " + reportID.Hex(),
		})
		return
	}

	h.auditService.RecordChange(ctx, &userID, models.AuditCommentAdded, "report", reportID,
		nil, map[string]interface{}{"comment_id": comment.ID.Hex(), "is_official": comment.IsOfficial},
		c.ClientIP(), c.Request.UserAgent())

	go h.notifySubscribersAboutComment(reportID, userID, comment)

	h.wsHandler.BroadcastReportEvent(reportID, "report_comment_added", comment)

	h.cache.Invalidate("/api/v1/reports")

	c.JSON(http.StatusCreated, comment)
}

// SubscribeToReport toggles the caller's subscription.
func (h *ReportHandler) SubscribeToReport(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid report ID",
			"details": err.Error(),
		})
		return
	}

	userID := c.MustGet("user_id").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := h.reportCollection.CountDocuments(ctx, bson.M{
		"_id":         reportID,
		"subscribers": userID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Database error",
			"details": err.Error(),
		})
		return
	}

	if count > 0 {
		result, err := h.reportCollection.UpdateOne(
			ctx,
			bson.M{"_id": reportID},
			bson.M{"$pull": bson.M{"subscribers": userID}},
		)
		if err != nil || result.MatchedCount == 0 {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Error unsubscribing",
				"details": "could not update subscription",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":    "Unsubscribed successfully",
			"subscribed": false,
		})
		return
	}

	result, err := h.reportCollection.UpdateOne(
		ctx,
		bson.M{"_id": reportID, "deleted_at": nil},
		bson.M{"$addToSet": bson.M{"subscribers": userID}},
	)
	if err != nil || result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Report not found",
			"details": "no report with ID " + reportID.Hex(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Subscribed successfully",
		"subscribed": true,
	})
}

func (h *ReportHandler) GetNearbyReports(c *gin.Context) {
	lat := c.Query("lat")
	lng := c.Query("lng")
	radiusStr := c.DefaultQuery("radius", "1000")

	if lat == "" || lng == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Missing coordinates",
			"details": "lat and lng query parameters are required",
		})
		return
	}

	var latitude, longitude float64
	var radius int
	if _, err := fmt.Sscanf(lat, "%f", &latitude); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid latitude",
			"details": err.Error(),
		})
		return
	}
	if _, err := fmt.Sscanf(lng, "%f", &longitude); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid longitude",
			"details": err.Error(),
		})
		return
	}
	if _, err := fmt.Sscanf(radiusStr, "%d", &radius); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid radius",
			"details": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := bson.M{
		"location": bson.M{
			"$near": bson.M{
				"$geometry":    models.NewPoint(longitude, latitude),
				"$maxDistance": radius,
			},
		},
		"status":     bson.M{"$nin": []string{models.ReportStatusResolved, models.ReportStatusRejected}},
		"deleted_at": nil,
	}
	h.applyReadScope(ctx, c, query)

	cursor, err := h.reportCollection.Find(ctx, query, options.Find().SetLimit(50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error fetching nearby reports",
			"details": err.Error(),
		})
		return
	}
	defer cursor.Close(ctx)

	var reports []models.Report
	if err := cursor.All(ctx, &reports); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Error decoding reports",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}

func (h *ReportHandler) notifyOfficialsAboutUrgentReport(report models.Report) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := h.userCollection.Find(ctx, bson.M{
		"role":       bson.M{"$ne": models.RoleCitizen},
		"lga_id":     report.LGAID,
		"deleted_at": nil,
	})
	if err != nil {
		return
	}
	defer cursor.Close(ctx)

	var officialIDs []primitive.ObjectID
	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			continue
		}
		officialIDs = append(officialIDs, user.ID)
	}

	if len(officialIDs) > 0 {
		h.notificationService.NotifyUsers(ctx, officialIDs, models.NotificationTypeReport,
			"Urgent report submitted",
			fmt.Sprintf("%s: %s", report.Category, report.Title),
			&report.ID)
	}
}

func (h *ReportHandler) notifySubscribersAboutComment(reportID, authorID primitive.ObjectID, comment models.ReportComment) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var report models.Report
	if err := h.reportCollection.FindOne(ctx, bson.M{"_id": reportID}).Decode(&report); err != nil {
		return
	}

	var recipients []primitive.ObjectID
	for _, subscriberID := range report.Subscribers {
		if subscriberID != authorID {
			recipients = append(recipients, subscriberID)
		}
	}
	if len(recipients) == 0 {
		return
	}

	title := "New comment on report"
	if comment.IsOfficial {
		title = "Official response on report"
	}

	preview := utils.TruncateForPreview(comment.Content, 50)
	h.notificationService.NotifyUsers(ctx, recipients, models.NotificationTypeReport,
		title,
		fmt.Sprintf("%s: %s", report.Title, preview),
		&reportID)
}

func (h *ReportHandler) notifySubscribersAboutStatusChange(report models.Report, oldStatus, note string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if len(report.Subscribers) == 0 {
		return
	}

	statusText := map[string]string{
		models.ReportStatusVerified:   "verified",
		models.ReportStatusInProgress: "being worked on",
		models.ReportStatusResolved:   "resolved",
		models.ReportStatusRejected:   "rejected",
	}[report.Status]
	if statusText == "" {
		statusText = report.Status
	}

	body := fmt.Sprintf("Report '%s' is now %s", report.Title, statusText)
	if note != "" {
		body += ". " + note
	}

	h.notificationService.NotifyUsers(ctx, report.Subscribers, models.NotificationTypeReport,
		"Report status changed",
		body,
		&report.ID)
}

func ensureSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func updateKeys(update bson.M) []string {
	keys := make([]string, 0, len(update))
	for k := range update {
		if k != "updated_at" {
			keys = append(keys, k)
		}
	}
	return keys
}
