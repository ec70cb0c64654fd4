package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/atelierhq/commission-platform/internal/auth"
	"github.com/atelierhq/commission-platform/internal/common"
	"github.com/atelierhq/commission-platform/internal/directory"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

type ensureActorReq struct {
	ExternalID          string `json:"external_id" binding:"required"`
	DisplayName         string `json:"display_name"`
	NotificationChannel string `json:"notification_channel"`
}

// EnsureActor is the front-end proxy's idempotent first-contact upsert.
func (h *Handler) EnsureActor(c *gin.Context) {
	var req ensureActorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	actor, err := h.Actors.Ensure(c.Request.Context(), req.ExternalID, directory.ProfileHints{
		DisplayName:         req.DisplayName,
		NotificationChannel: req.NotificationChannel,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, gin.H{
		"id":           actor.ID,
		"external_id":  actor.ExternalID,
		"display_name": actor.DisplayName,
	})
}

type loginReq struct {
	ExternalID string `json:"external_id" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	actor, err := h.Actors.ResolveExternal(c.Request.Context(), req.ExternalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusUnauthorized, 40103, "invalid credentials")
			return
		}
		failErr(c, err)
		return
	}
	if !auth.CheckPassword(actor.PasswordHash, req.Password) {
		common.Fail(c, http.StatusUnauthorized, 40103, "invalid credentials")
		return
	}
	token, err := auth.SignJWT(actor.ID, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, gin.H{"token": token, "actor_id": actor.ID})
}

func (h *Handler) Me(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	actor, err := h.Actors.Resolve(c.Request.Context(), aid)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, gin.H{
		"id":           actor.ID,
		"external_id":  actor.ExternalID,
		"display_name": actor.DisplayName,
		"is_executor":  actor.IsExecutor,
	})
}
