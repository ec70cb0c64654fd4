package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atelierhq/commission-platform/internal/common"
	"github.com/atelierhq/commission-platform/internal/revision"
)

type createRevisionReq struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Priority    string `json:"priority" binding:"required"`
}

// CreateRevision is the direct (non-wizard) creation path used by the
// executor-side tooling.
func (h *Handler) CreateRevision(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	projectID, err := strconv.ParseUint(c.Param("project_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10002, "invalid project id")
		return
	}
	var req createRevisionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	rev, err := h.Store.Create(c.Request.Context(), projectID, aid, req.Title, req.Description, revision.Priority(req.Priority))
	if err != nil {
		failErr(c, err)
		return
	}
	if proj, perr := h.Store.Project(c.Request.Context(), projectID, aid); perr == nil {
		h.Notify.RevisionCreated(c.Request.Context(), proj, rev, aid)
	}
	common.OK(c, rev)
}

func (h *Handler) GetRevision(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	rev, err := h.Store.Get(c.Request.Context(), c.Param("revision_id"), aid)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, rev)
}

func (h *Handler) ListProjectRevisions(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	projectID, err := strconv.ParseUint(c.Param("project_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10002, "invalid project id")
		return
	}
	revs, err := h.Store.ListByProject(c.Request.Context(), projectID, aid)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, gin.H{"revisions": revs})
}

type transitionReq struct {
	Target  string `json:"target" binding:"required"`
	Comment string `json:"comment"`
}

func (h *Handler) TransitionStatus(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	rev, err := h.Machine.Transition(c.Request.Context(), c.Param("revision_id"), aid, revision.Status(req.Target), req.Comment)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, rev)
}

type appendMessageReq struct {
	Body          string   `json:"body"`
	AttachmentIDs []uint64 `json:"attachment_ids"`
	IsInternal    bool     `json:"is_internal"`
}

func (h *Handler) AppendMessage(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	var req appendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	msg, err := h.Thread.Append(c.Request.Context(), c.Param("revision_id"), aid, req.Body, req.AttachmentIDs, req.IsInternal)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, msg)
}

// ListMessages pages the thread. Without before_id the thread comes
// oldest-first; with a before_id cursor pages come newest-first.
func (h *Handler) ListMessages(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		limit = h.Cfg.MessagePageSize
	}
	var beforeID uint64
	if v := c.Query("before_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			beforeID = n
		}
	}
	includeInternal := c.Query("include_internal") == "true"

	msgs, err := h.Thread.List(c.Request.Context(), c.Param("revision_id"), aid, limit, beforeID, includeInternal)
	if err != nil {
		failErr(c, err)
		return
	}
	var nextBeforeID uint64
	if beforeID > 0 && len(msgs) > 0 {
		nextBeforeID = msgs[len(msgs)-1].ID
	}
	common.OK(c, gin.H{
		"messages":       msgs,
		"next_before_id": nextBeforeID,
	})
}

func (h *Handler) ListMessageAttachments(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	messageID, err := strconv.ParseUint(c.Param("message_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10003, "invalid message id")
		return
	}
	atts, err := h.Thread.Attachments(c.Request.Context(), c.Param("revision_id"), aid, messageID)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, gin.H{"attachments": atts})
}

type progressReq struct {
	Percent      int   `json:"percent"`
	SpentSeconds int64 `json:"spent_seconds"`
}

func (h *Handler) RecordProgress(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	var req progressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	rev, err := h.Store.RecordProgress(c.Request.Context(), c.Param("revision_id"), aid,
		req.Percent, time.Duration(req.SpentSeconds)*time.Second)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, rev)
}

type assignReq struct {
	ExecutorID uint64 `json:"executor_id" binding:"required"`
}

func (h *Handler) AssignRevision(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	rev, err := h.Store.Assign(c.Request.Context(), c.Param("revision_id"), aid, req.ExecutorID)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, rev)
}
