package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/atelierhq/commission-platform/internal/blob"
	"github.com/atelierhq/commission-platform/internal/common"
	"github.com/atelierhq/commission-platform/internal/config"
	"github.com/atelierhq/commission-platform/internal/httpapi/handlers"
	"github.com/atelierhq/commission-platform/internal/httpapi/middleware"
	"github.com/atelierhq/commission-platform/internal/notify"
	"github.com/atelierhq/commission-platform/internal/wizard"
)

func NewRouter(db *gorm.DB, cfg config.Config, sessions wizard.Sessions, blobs blob.Store, transport notify.Transport) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(db, cfg, sessions, blobs, transport)

	r.GET("/ping", h.Ping)

	// front-end proxy surface
	r.POST("/actors", h.EnsureActor)
	r.POST("/login", h.Login)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)

	// revisions
	authGroup.POST("/projects/:project_id/revisions", h.CreateRevision)
	authGroup.GET("/projects/:project_id/revisions", h.ListProjectRevisions)
	authGroup.GET("/revisions/:revision_id", h.GetRevision)
	authGroup.POST("/revisions/:revision_id/status", h.TransitionStatus)
	authGroup.POST("/revisions/:revision_id/progress", h.RecordProgress)
	authGroup.POST("/revisions/:revision_id/assign", h.AssignRevision)

	// thread
	authGroup.POST("/revisions/:revision_id/messages", h.AppendMessage)
	authGroup.GET("/revisions/:revision_id/messages", h.ListMessages)
	authGroup.GET("/revisions/:revision_id/messages/:message_id/attachments", h.ListMessageAttachments)

	// wizard (one session per actor)
	authGroup.POST("/wizard/start", h.WizardStart)
	authGroup.GET("/wizard", h.WizardCurrent)
	authGroup.POST("/wizard/field", h.WizardSubmitField)
	authGroup.POST("/wizard/files", h.WizardStageFile)
	authGroup.POST("/wizard/confirm", h.WizardConfirm)
	authGroup.POST("/wizard/cancel", h.WizardCancel)

	return r
}
