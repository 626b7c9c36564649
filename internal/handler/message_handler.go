package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Talalkassab/manfaa-api/internal/middleware"
	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/Talalkassab/manfaa-api/pkg/database"
	"github.com/Talalkassab/manfaa-api/pkg/logger"
	"github.com/Talalkassab/manfaa-api/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ConversationSummary is one row of the inbox view
type ConversationSummary struct {
	ConversationID string        `json:"conversation_id"`
	OtherUserID    uint          `json:"other_user_id"`
	BusinessID     *uint         `json:"business_id,omitempty"`
	LastMessage    model.Message `json:"last_message"`
	UnreadCount    int           `json:"unread_count"`
}

// ListMessages returns either the caller's conversation summaries, or one
// conversation's messages when conversationId or userId is given. Fetched
// incoming messages are marked read.
func ListMessages(c echo.Context) error {
	log := logger.FromContext(c)
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	conversationID := c.QueryParam("conversationId")
	if otherStr := c.QueryParam("userId"); conversationID == "" && otherStr != "" {
		other, err := strconv.ParseUint(otherStr, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid userId"})
		}
		conversationID = model.ConversationID(claims.UserID, uint(other))
	}

	if conversationID != "" {
		if !isParticipant(conversationID, claims.UserID) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this conversation"})
		}

		var messages []model.Message
		err := database.GetDB().
			Where("conversation_id = ?", conversationID).
			Order("sent_at asc").
			Find(&messages).Error
		if err != nil {
			if database.IsUndefinedTable(err) {
				prometheus.RecordError("schema_drift")
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "messaging is not available: messages table missing, run migrations"})
			}
			log.Error("Failed to fetch conversation", zap.String("table", "messages"), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch messages"})
		}

		markRead(c, conversationID, claims.UserID)
		return c.JSON(http.StatusOK, echo.Map{"messages": messages})
	}

	// Inbox: group the caller's messages by conversation
	var messages []model.Message
	err := database.GetDB().
		Where("sender_id = ? OR recipient_id = ?", claims.UserID, claims.UserID).
		Order("sent_at desc").
		Find(&messages).Error
	if err != nil {
		if database.IsUndefinedTable(err) {
			// Not-yet-migrated installations get an empty inbox, not an error
			return c.JSON(http.StatusOK, echo.Map{"conversations": []ConversationSummary{}})
		}
		log.Error("Failed to fetch messages", zap.String("table", "messages"), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch messages"})
	}

	seen := make(map[string]int)
	summaries := []ConversationSummary{}
	for _, m := range messages {
		idx, ok := seen[m.ConversationID]
		if !ok {
			other := m.SenderID
			if other == claims.UserID {
				other = m.RecipientID
			}
			summaries = append(summaries, ConversationSummary{
				ConversationID: m.ConversationID,
				OtherUserID:    other,
				BusinessID:     m.BusinessID,
				LastMessage:    m,
			})
			idx = len(summaries) - 1
			seen[m.ConversationID] = idx
		}
		if m.RecipientID == claims.UserID && m.ReadAt == nil {
			summaries[idx].UnreadCount++
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"conversations": summaries})
}

// SendMessage posts a message addressed by conversationId, by
// recipientId+content, or by businessId+message (contacting the seller).
func SendMessage(c echo.Context) error {
	log := logger.FromContext(c)
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		ConversationID string `json:"conversationId"`
		RecipientID    *uint  `json:"recipientId"`
		BusinessID     *uint  `json:"businessId"`
		Content        string `json:"content"`
		Message        string `json:"message"` // contact-the-seller alias
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	content := req.Content
	if content == "" {
		content = req.Message
	}
	if content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content is required"})
	}

	var recipient uint
	var businessID *uint
	switch {
	case req.RecipientID != nil:
		recipient = *req.RecipientID
		businessID = req.BusinessID
	case req.ConversationID != "":
		other, ok := otherParticipant(req.ConversationID, claims.UserID)
		if !ok {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this conversation"})
		}
		recipient = other
	case req.BusinessID != nil:
		var biz model.Business
		if err := database.GetDB().First(&biz, *req.BusinessID).Error; err != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "business not found"})
		}
		recipient = biz.OwnerID
		businessID = req.BusinessID
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "recipientId, conversationId or businessId is required"})
	}

	if recipient == claims.UserID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot message yourself"})
	}

	msg := model.Message{
		ConversationID: model.ConversationID(claims.UserID, recipient),
		SenderID:       claims.UserID,
		RecipientID:    recipient,
		BusinessID:     businessID,
		Content:        content,
		SentAt:         time.Now(),
	}

	if err := database.GetDB().Create(&msg).Error; err != nil {
		if database.IsUndefinedTable(err) {
			prometheus.RecordError("schema_drift")
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "messaging is not available: messages table missing, run migrations"})
		}
		log.Error("Failed to send message", zap.String("table", "messages"), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send message"})
	}

	prometheus.MessageCounter.Inc()
	log.Info("Message sent",
		zap.String("conversation_id", msg.ConversationID),
		zap.Uint("sender_id", msg.SenderID),
		zap.Uint("recipient_id", msg.RecipientID))

	return c.JSON(http.StatusCreated, msg)
}

func markRead(c echo.Context, conversationID string, userID uint) {
	now := time.Now()
	err := database.GetDB().Model(&model.Message{}).
		Where("conversation_id = ? AND recipient_id = ? AND read_at IS NULL", conversationID, userID).
		Update("read_at", now).Error
	if err != nil {
		logger.FromContext(c).Warn("Failed to mark messages read",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}
}

// isParticipant checks a user id against the two ids encoded in the
// conversation key
func isParticipant(conversationID string, userID uint) bool {
	_, ok := otherParticipant(conversationID, userID)
	return ok
}

func otherParticipant(conversationID string, userID uint) (uint, bool) {
	parts := strings.SplitN(conversationID, "_", 2)
	if len(parts) != 2 {
		return 0, false
	}
	a, errA := strconv.ParseUint(parts[0], 10, 32)
	b, errB := strconv.ParseUint(parts[1], 10, 32)
	if errA != nil || errB != nil {
		return 0, false
	}
	switch userID {
	case uint(a):
		return uint(b), true
	case uint(b):
		return uint(a), true
	}
	return 0, false
}
