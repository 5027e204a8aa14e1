// internal/handlers/users.go
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"reportes-viales/internal/models"
	"reportes-viales/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserHandler struct {
	userCollection *mongo.Collection
	statsService   *services.StatsService
}

type UpdateUserRoleRequest struct {
	Role      string `json:"role" binding:"required,oneof=citizen authority admin"`
	Specialty string `json:"specialty,omitempty"`
}

type BlockUserRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

func NewUserHandler(userCollection *mongo.Collection, statsService *services.StatsService) *UserHandler {
	return &UserHandler{
		userCollection: userCollection,
		statsService:   statsService,
	}
}

// GetUsers возвращает список пользователей с фильтром по роли (только админ)
func (h *UserHandler) GetUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := bson.M{}
	if role := c.Query("role"); role != "" {
		if !models.UserRole(role).IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid role filter",
			})
			return
		}
		query["role"] = role
	}
	if specialty := c.Query("specialty"); specialty != "" {
		query["specialty"] = specialty
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	total, err := h.userCollection.CountDocuments(ctx, query)
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

	cursor, err := h.userCollection.Find(ctx, query, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Database error",
		})
		return
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error decoding users",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetUser возвращает одного пользователя по ID
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := h.userCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateUserRole назначает роль и специализацию.
// Для роли authority специализация обязательна и должна совпадать
// с одной из категорий заявок
func (h *UserHandler) UpdateUserRole(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID",
		})
		return
	}

	var req UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	role := models.UserRole(req.Role)
	if role.RequiresSpecialty() {
		if req.Specialty == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Specialty is required for authority role",
			})
			return
		}
		if !models.IsValidCategory(req.Specialty) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":            "Unknown specialty",
				"valid_categories": models.AllReportCategories(),
			})
			return
		}
	} else {
		// Специализация имеет смысл только для authority
		req.Specialty = ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"role":       req.Role,
			"updated_at": time.Now(),
		},
	}
	if req.Specialty != "" {
		update["$set"].(bson.M)["specialty"] = req.Specialty
	} else {
		update["$unset"] = bson.M{"specialty": ""}
	}

	result, err := h.userCollection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error updating user",
		})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "User role updated",
		"role":      req.Role,
		"specialty": req.Specialty,
	})
}

// BlockUser блокирует пользователя с указанием причины
func (h *UserHandler) BlockUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID",
		})
		return
	}

	var req BlockUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	// Админ не может заблокировать сам себя
	currentUserID, _ := c.Get("user_id")
	if currentUserID.(string) == userID.Hex() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cannot block yourself",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	result, err := h.userCollection.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{
			"is_blocked":   true,
			"block_reason": req.Reason,
			"blocked_at":   now,
			"updated_at":   now,
		}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error blocking user",
		})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User blocked",
	})
}

// UnblockUser снимает блокировку
func (h *UserHandler) UnblockUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := h.userCollection.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{
			"$set": bson.M{
				"is_blocked": false,
				"updated_at": time.Now(),
			},
			"$unset": bson.M{
				"block_reason": "",
				"blocked_at":   "",
			},
		},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error unblocking user",
		})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User unblocked",
	})
}

// DeleteUser удаляет пользователя (только админ)
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID",
		})
		return
	}

	currentUserID, _ := c.Get("user_id")
	if currentUserID.(string) == userID.Hex() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cannot delete yourself",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := h.userCollection.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error deleting user",
		})
		return
	}
	if result.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted",
	})
}

// GetAuthorityStats возвращает показатели работы органа
func (h *UserHandler) GetAuthorityStats(c *gin.Context) {
	authorityID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := h.userCollection.FindOne(ctx, bson.M{"_id": authorityID}).Decode(&user); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found",
		})
		return
	}
	if user.Role != string(models.RoleAuthority) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "User is not an authority",
		})
		return
	}

	performance, err := h.statsService.GetAuthorityPerformance(ctx, authorityID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error calculating statistics",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": performance})
}

// GetSystemStats возвращает сводку по системе для админской панели
func (h *UserHandler) GetSystemStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	overview, err := h.statsService.GetSystemOverview(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error calculating statistics",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"overview": overview})
}
