package statushttp

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"sibyl/internal/pkg/symbol"
	"sibyl/internal/track"
)

type apiRouter struct {
	cfg ServerConfig

	mu      sync.Mutex
	baseCtx context.Context
}

// setBaseContext installs the server's lifecycle context; triggered runs
// inherit it so process shutdown cancels them too.
func (r *apiRouter) setBaseContext(ctx context.Context) {
	r.mu.Lock()
	r.baseCtx = ctx
	r.mu.Unlock()
}

func (r *apiRouter) baseContext() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.baseCtx != nil {
		return r.baseCtx
	}
	return context.Background()
}

func (r *apiRouter) register(group *gin.RouterGroup) {
	group.GET("/status/health", r.handleHealth)
	group.GET("/status/records", r.handleRecords)
	group.GET("/status/records/:id", r.handleRecordByID)
	group.GET("/runs/latest", r.handleLatestRun)
	if r.cfg.History != nil {
		group.GET("/runs", r.handleRuns)
	}
	if r.cfg.Trigger != nil {
		group.POST("/runs/trigger", r.handleTrigger)
	}
}

func (r *apiRouter) handleHealth(c *gin.Context) {
	health := r.cfg.Status.Health()
	if r.cfg.Prober != nil {
		health = r.cfg.Prober.Check(c.Request.Context())
	}
	code := http.StatusOK
	if !health.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, health)
}

// recordView wraps a tracking record with its textual status.
type recordView struct {
	track.Record
	Status string `json:"status"`
}

func viewOf(rec track.Record) recordView {
	return recordView{Record: rec, Status: rec.StatusText()}
}

func (r *apiRouter) handleRecords(c *gin.Context) {
	var records []track.Record
	if sym := symbol.Normalize(c.Query("symbol")); sym != "" {
		records = r.cfg.Records.BySymbol(sym)
	} else {
		records = r.cfg.Records.List()
	}
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, viewOf(rec))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(views), "records": views})
}

func (r *apiRouter) handleRecordByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	rec, ok := r.cfg.Records.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found", "id": id})
		return
	}
	c.JSON(http.StatusOK, viewOf(rec))
}

func (r *apiRouter) handleLatestRun(c *gin.Context) {
	summary, ok := r.cfg.Status.LastSummary()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run has finished yet"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (r *apiRouter) handleRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	runs, err := r.cfg.History.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(runs), "runs": runs})
}

func (r *apiRouter) handleTrigger(c *gin.Context) {
	go r.cfg.Trigger(r.baseContext())
	c.JSON(http.StatusAccepted, gin.H{"status": "triggered"})
}
