package app

import (
	"database/sql"

	"github.com/go-chi/oauth"
	"github.com/mbolis/formify/config"
	"github.com/mbolis/formify/live"
	"github.com/mbolis/formify/report"
	"github.com/mbolis/formify/service"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config

	service.Services
	Reports   *report.Reports
	Builder   *report.Builder
	Scheduler *report.Scheduler
	Hub       *live.Hub
}
