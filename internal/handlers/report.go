// internal/handlers/report.go
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reportes-viales/internal/models"
	"reportes-viales/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReportHandler struct {
	reportCollection *mongo.Collection
	userCollection   *mongo.Collection
}

type CreateReportRequest struct {
	Category    string          `json:"category" binding:"required,report_category"`
	Description string          `json:"description" binding:"required,min=10,max=1000"`
	PhotoURL    string          `json:"photo_url" binding:"required,url"`
	Location    models.Location `json:"location" binding:"required"`
	Address     string          `json:"address"`
}

type UpdateReportStatusRequest struct {
	Status           string `json:"status" binding:"required,oneof=in_progress completed rejected"`
	RejectionReason  string `json:"rejection_reason,omitempty"`
	SolutionPhotoURL string `json:"solution_photo_url,omitempty"`
}

type RateReportRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty" binding:"omitempty,max=500"`
}

type ReportFilters struct {
	Category string `form:"category"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

func NewReportHandler(reportCollection, userCollection *mongo.Collection) *ReportHandler {
	return &ReportHandler{
		reportCollection: reportCollection,
		userCollection:   userCollection,
	}
}

// newFolio генерирует публичный номер заявки вида RV-1A2B3C4D
func newFolio() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("RV-%s", strings.ToUpper(raw[:8]))
}

// CreateReport создает новую заявку о дорожном дефекте
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID, _ := c.Get("user_id")
	userIDObj, err := primitive.ObjectIDFromHex(userID.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ограничиваем количество активных заявок на одного гражданина
	activeCount, err := h.reportCollection.CountDocuments(ctx, bson.M{
		"reporter_id": userIDObj,
		"status":      bson.M{"$in": []string{models.ReportStatusPending, models.ReportStatusInProgress}},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Database error",
		})
		return
	}

	if activeCount >= 10 {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": "Too many active reports. Please wait for some to be resolved.",
		})
		return
	}

	now := time.Now()
	report := models.Report{
		ReporterID:  userIDObj,
		Folio:       newFolio(),
		Category:    req.Category,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
		Location:    req.Location,
		Address:     req.Address,
		Status:      models.ReportStatusPending,
		ActivityLog: []models.ActivityLogEntry{
			{
				Status:    models.ReportStatusPending,
				Timestamp: now,
				ActorID:   userIDObj,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := h.reportCollection.InsertOne(ctx, report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error creating report",
		})
		return
	}

	report.ID = result.InsertedID.(primitive.ObjectID)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Report created successfully",
		"report":  report,
	})
}

// GetMyReports возвращает заявки текущего гражданина
func (h *ReportHandler) GetMyReports(c *gin.Context) {
	userID, _ := c.Get("user_id")
	userIDObj, err := primitive.ObjectIDFromHex(userID.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID",
		})
		return
	}

	var filters ReportFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	query := bson.M{"reporter_id": userIDObj}
	if filters.Status != "" && models.IsValidStatus(filters.Status) {
		query["status"] = filters.Status
	}

	h.listReports(c, query, filters.Page, filters.Limit)
}

// GetAssignedReports возвращает заявки по специализации авторитета.
// Авторитет видит все pending-заявки своей категории и все заявки,
// которые он уже взял в работу
func (h *ReportHandler) GetAssignedReports(c *gin.Context) {
	userID, _ := c.Get("user_id")
	userIDObj, err := primitive.ObjectIDFromHex(userID.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := h.userCollection.FindOne(ctx, bson.M{"_id": userIDObj}).Decode(&user); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found",
		})
		return
	}

	if user.Specialty == "" {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Authority has no specialty assigned",
		})
		return
	}

	var filters ReportFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	query := bson.M{
		"$or": []bson.M{
			{"category": user.Specialty, "status": models.ReportStatusPending},
			{"authority_id": userIDObj},
		},
	}
	if filters.Status != "" && models.IsValidStatus(filters.Status) {
		query = bson.M{
			"category": user.Specialty,
			"status":   filters.Status,
		}
		if filters.Status != models.ReportStatusPending {
			query["authority_id"] = userIDObj
		}
	}

	h.listReports(c, query, filters.Page, filters.Limit)
}

// GetAllReports возвращает все заявки с фильтрами (только для админа)
func (h *ReportHandler) GetAllReports(c *gin.Context) {
	var filters ReportFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	query := bson.M{}
	if filters.Category != "" && models.IsValidCategory(filters.Category) {
		query["category"] = filters.Category
	}
	if filters.Status != "" && models.IsValidStatus(filters.Status) {
		query["status"] = filters.Status
	}

	h.listReports(c, query, filters.Page, filters.Limit)
}

func (h *ReportHandler) listReports(c *gin.Context, query bson.M, page, limit int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	total, err := h.reportCollection.CountDocuments(ctx, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Database error",
		})
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := h.reportCollection.Find(ctx, query, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Database error",
		})
		return
	}
	defer cursor.Close(ctx)

	reports := make([]models.Report, 0)
	if err := cursor.All(ctx, &reports); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error decoding reports",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// GetReport возвращает одну заявку по ID
func (h *ReportHandler) GetReport(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid report ID",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var report models.Report
	if err := h.reportCollection.FindOne(ctx, bson.M{"_id": reportID}).Decode(&report); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Report not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// GetNearbyReports возвращает заявки в радиусе от точки.
// Кандидатов выбираем через 2dsphere, расстояние до каждой заявки
// пересчитываем по Haversine и отдаём клиенту
func (h *ReportHandler) GetNearbyReports(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid latitude",
		})
		return
	}

	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid longitude",
		})
		return
	}

	radiusKm := 2.0
	if radiusStr := c.Query("radius_km"); radiusStr != "" {
		radiusKm, err = strconv.ParseFloat(radiusStr, 64)
		if err != nil || radiusKm <= 0 || radiusKm > 50 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid radius",
			})
			return
		}
	}

	center := models.Location{
		Type:        "Point",
		Coordinates: []float64{lng, lat},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := bson.M{
		"location": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": []interface{}{
					center.Coordinates,
					radiusKm / 6371.0, // радиус в радианах
				},
			},
		},
		"status": bson.M{"$ne": models.ReportStatusRejected},
	}

	cursor, err := h.reportCollection.Find(ctx, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Database error",
		})
		return
	}
	defer cursor.Close(ctx)

	var reports []models.Report
	if err := cursor.All(ctx, &reports); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error decoding reports",
		})
		return
	}

	type nearbyReport struct {
		models.Report
		DistanceKm float64 `json:"distance_km"`
	}

	results := make([]nearbyReport, 0, len(reports))
	for _, report := range reports {
		distance := utils.CalculateDistance(center, report.Location)
		if distance <= radiusKm {
			results = append(results, nearbyReport{
				Report:     report,
				DistanceKm: distance,
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": results,
		"total":   len(results),
	})
}

// UpdateReportStatus меняет статус заявки.
// Допустимые переходы: pending -> in_progress | rejected, in_progress -> completed.
// Отклонение требует причину, завершение — фото решения
func (h *ReportHandler) UpdateReportStatus(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid report ID",
		})
		return
	}

	var req UpdateReportStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID, _ := c.Get("user_id")
	userIDObj, err := primitive.ObjectIDFromHex(userID.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var report models.Report
	if err := h.reportCollection.FindOne(ctx, bson.M{"_id": reportID}).Decode(&report); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Report not found",
		})
		return
	}

	// Авторитет работает только с заявками своей специализации
	var user models.User
	if err := h.userCollection.FindOne(ctx, bson.M{"_id": userIDObj}).Decode(&user); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found",
		})
		return
	}
	if user.Role == string(models.RoleAuthority) && !user.IsAuthorityFor(report.Category) {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Report category does not match your specialty",
		})
		return
	}

	// Заявку, взятую в работу, завершает тот же авторитет
	if report.Status == models.ReportStatusInProgress &&
		report.AuthorityID != nil && *report.AuthorityID != userIDObj &&
		user.Role != string(models.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Report is assigned to another authority",
		})
		return
	}

	if !report.CanTransitionTo(req.Status) {
		c.JSON(http.StatusConflict, gin.H{
			"error":          "Invalid status transition",
			"current_status": report.Status,
			"new_status":     req.Status,
		})
		return
	}

	if req.Status == models.ReportStatusRejected && req.RejectionReason == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Rejection reason is required",
		})
		return
	}

	if req.Status == models.ReportStatusCompleted && req.SolutionPhotoURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Solution photo is required to complete a report",
		})
		return
	}

	now := time.Now()
	update := bson.M{
		"status":     req.Status,
		"updated_at": now,
	}

	switch req.Status {
	case models.ReportStatusInProgress:
		update["authority_id"] = userIDObj
		update["accepted_at"] = now
	case models.ReportStatusCompleted:
		update["completed_at"] = now
		update["solution_photo_url"] = req.SolutionPhotoURL
	case models.ReportStatusRejected:
		update["rejection_reason"] = req.RejectionReason
	}

	activityEntry := models.ActivityLogEntry{
		Status:    req.Status,
		Timestamp: now,
		ActorID:   userIDObj,
	}

	// Фильтр повторяет текущий статус: при конкурирующих обновлениях
	// выигрывает ровно одно, остальные получают 409
	result, err := h.reportCollection.UpdateOne(
		ctx,
		bson.M{"_id": reportID, "status": report.Status},
		bson.M{
			"$set":  update,
			"$push": bson.M{"activity_log": activityEntry},
		},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error updating report",
		})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Report was modified by another request",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Report status updated successfully",
		"status":  req.Status,
	})
}

// RateReport выставляет оценку завершённой заявке.
// Оценить может только автор, ровно один раз
func (h *ReportHandler) RateReport(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid report ID",
		})
		return
	}

	var req RateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID, _ := c.Get("user_id")
	userIDObj, err := primitive.ObjectIDFromHex(userID.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var report models.Report
	if err := h.reportCollection.FindOne(ctx, bson.M{"_id": reportID}).Decode(&report); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Report not found",
		})
		return
	}

	if report.ReporterID != userIDObj {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Only the reporter can rate this report",
		})
		return
	}

	if !report.IsCompleted() {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Only completed reports can be rated",
		})
		return
	}

	if report.HasRating() {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Report has already been rated",
		})
		return
	}

	now := time.Now()

	// Фильтр с rating: null гарантирует однократность оценки
	// даже при конкурирующих запросах
	result, err := h.reportCollection.UpdateOne(
		ctx,
		bson.M{
			"_id":    reportID,
			"status": models.ReportStatusCompleted,
			"rating": nil,
		},
		bson.M{"$set": bson.M{
			"rating":         req.Rating,
			"rating_comment": req.Comment,
			"rated_at":       now,
			"updated_at":     now,
		}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error rating report",
		})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Report has already been rated",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Report rated successfully",
		"rating":  req.Rating,
	})
}
