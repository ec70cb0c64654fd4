package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/atelierhq/commission-platform/internal/common"
)

type wizardStartReq struct {
	ProjectID uint64 `json:"project_id" binding:"required"`
}

func (h *Handler) WizardStart(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	var req wizardStartReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	s, err := h.Wizard.Start(c.Request.Context(), aid, req.ProjectID)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, gin.H{"step": s.Step, "draft_key": s.DraftKey})
}

func (h *Handler) WizardCurrent(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	s, err := h.Wizard.Current(c.Request.Context(), aid)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, s)
}

type wizardFieldReq struct {
	Value string `json:"value" binding:"required"`
}

func (h *Handler) WizardSubmitField(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	var req wizardFieldReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	s, err := h.Wizard.SubmitField(c.Request.Context(), aid, req.Value)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, gin.H{"step": s.Step})
}

// WizardStageFile accepts a multipart upload at the files step. The declared
// kind comes from the "kind" form field.
func (h *Handler) WizardStageFile(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "file field required")
		return
	}
	kind := c.PostForm("kind")

	f, err := fh.Open()
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10005, "could not read upload")
		return
	}
	defer f.Close()

	att, err := h.Wizard.StageFile(c.Request.Context(), aid, f, fh.Filename, kind, fh.Size)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, gin.H{
		"attachment_id": att.ID,
		"original_name": att.OriginalName,
		"size_bytes":    strconv.FormatInt(att.SizeBytes, 10),
	})
}

func (h *Handler) WizardConfirm(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	rev, err := h.Wizard.Confirm(c.Request.Context(), aid)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, rev)
}

func (h *Handler) WizardCancel(c *gin.Context) {
	aid, ok := actorIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	if err := h.Wizard.Cancel(c.Request.Context(), aid); err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, gin.H{"cancelled": true})
}
