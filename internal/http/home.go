package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joelsmith11/locallibrary/internal/entities"
)

// HistoryGenre is the genre counted on the home page.
const HistoryGenre = "history"

type HomeController struct {
	catalog   CatalogCounter
	instances InstanceCounter
	visits    VisitCounter
}

// NewHomeController creates the home page controller. visits may be nil,
// in which case the visit counter always shows zero.
func NewHomeController(catalog CatalogCounter, instances InstanceCounter, visits VisitCounter) *HomeController {
	return &HomeController{
		catalog:   catalog,
		instances: instances,
		visits:    visits,
	}
}

// HomeStats are the counts shown on the home page.
type HomeStats struct {
	Books              int64 `json:"num_books"`
	Instances          int64 `json:"num_instances"`
	InstancesAvailable int64 `json:"num_instances_available"`
	Authors            int64 `json:"num_authors"`
	HistoryBooks       int64 `json:"num_history_books"`
}

func (hc *HomeController) stats() (HomeStats, error) {
	var (
		s   HomeStats
		err error
	)
	if s.Books, err = hc.catalog.CountBooks(); err != nil {
		return s, err
	}
	if s.Instances, err = hc.instances.CountInstances(); err != nil {
		return s, err
	}
	if s.InstancesAvailable, err = hc.instances.CountByStatus(entities.LoanStatusAvailable); err != nil {
		return s, err
	}
	if s.Authors, err = hc.catalog.CountAuthors(); err != nil {
		return s, err
	}
	if s.HistoryBooks, err = hc.catalog.CountBooksInGenre(HistoryGenre); err != nil {
		return s, err
	}
	return s, nil
}

// Index renders the home page. The visit counter shows the number of
// earlier visits in this session.
func (hc *HomeController) Index(c *gin.Context) {
	stats, err := hc.stats()
	if err != nil {
		renderInternalError(c, err, "home stats")
		return
	}

	numVisits := 0
	if hc.visits != nil {
		numVisits = hc.visits.RecordVisit(c.Request.Context())
	}

	data := viewData(c, "Local Library Home")
	data["Stats"] = stats
	data["NumVisits"] = numVisits
	c.HTML(http.StatusOK, "index.html", data)
}
