package api

import (
	"time"

	"github.com/yourname/fastingtracker/internal"
	"github.com/yourname/fastingtracker/internal/plan"
	"github.com/yourname/fastingtracker/internal/service"
	"github.com/yourname/fastingtracker/internal/storage"
)

// App bundles the dependencies the handlers need.
type App interface {
	Logger() internal.Logger
	Store() storage.Store
	Catalog() *plan.Catalog
	Lifecycle() *service.Lifecycle
	Analytics() *service.Analytics
	Location() *time.Location
}

type app struct {
	logger    internal.Logger
	store     storage.Store
	catalog   *plan.Catalog
	lifecycle *service.Lifecycle
	analytics *service.Analytics
	loc       *time.Location
}

func NewApp(logger internal.Logger, store storage.Store, catalog *plan.Catalog, lifecycle *service.Lifecycle, analytics *service.Analytics, loc *time.Location) App {
	return &app{
		logger:    logger,
		store:     store,
		catalog:   catalog,
		lifecycle: lifecycle,
		analytics: analytics,
		loc:       loc,
	}
}

func (a *app) Logger() internal.Logger       { return a.logger }
func (a *app) Store() storage.Store          { return a.store }
func (a *app) Catalog() *plan.Catalog        { return a.catalog }
func (a *app) Lifecycle() *service.Lifecycle { return a.lifecycle }
func (a *app) Analytics() *service.Analytics { return a.analytics }
func (a *app) Location() *time.Location      { return a.loc }
