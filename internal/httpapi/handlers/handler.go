package handlers

import (
	"gorm.io/gorm"

	"github.com/atelierhq/commission-platform/internal/blob"
	"github.com/atelierhq/commission-platform/internal/config"
	"github.com/atelierhq/commission-platform/internal/directory"
	"github.com/atelierhq/commission-platform/internal/notify"
	"github.com/atelierhq/commission-platform/internal/revision"
	"github.com/atelierhq/commission-platform/internal/wizard"
)

type Handler struct {
	Cfg config.Config

	Actors   directory.Actors
	Projects directory.Projects

	Store    *revision.Store
	Machine  *revision.StatusMachine
	Thread   *revision.Thread
	Ingester *revision.Ingester
	Wizard   *wizard.Wizard
	Notify   *notify.Router
}

func NewHandler(db *gorm.DB, cfg config.Config, sessions wizard.Sessions, blobs blob.Store, transport notify.Transport) *Handler {
	actors := directory.NewGormActors(db)
	projects := directory.NewGormProjects(db)

	repo := revision.NewRepo(db)
	store := revision.NewStore(repo, projects)
	router := notify.NewRouter(actors, transport, cfg.TeamChannel)
	ingester := revision.NewIngester(repo, blobs, cfg.MaxUploadMB<<20)
	thread := revision.NewThread(store, repo, ingester, router)
	machine := revision.NewStatusMachine(store, repo, router)
	wiz := wizard.New(sessions, store, thread, ingester, router)

	return &Handler{
		Cfg:      cfg,
		Actors:   actors,
		Projects: projects,
		Store:    store,
		Machine:  machine,
		Thread:   thread,
		Ingester: ingester,
		Wizard:   wiz,
		Notify:   router,
	}
}
