package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/luispater/pagechain/internal/browser/launch"
	"github.com/luispater/pagechain/internal/config"
	"github.com/luispater/pagechain/internal/page"
	"github.com/luispater/pagechain/internal/runner"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var ScreenshotMutex sync.Mutex

// APIHandlers contains the handlers for API endpoints
type APIHandlers struct {
	queue     *RequestQueue
	processor *ChainProcessor
	registry  *page.Registry
	runner    *runner.RunnerManager
	session   *launch.Session
	appConfig *config.AppConfig
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(appConfig *config.AppConfig, queue *RequestQueue, processor *ChainProcessor, registry *page.Registry, r *runner.RunnerManager, session *launch.Session) *APIHandlers {
	return &APIHandlers{
		queue:     queue,
		processor: processor,
		registry:  registry,
		runner:    r,
		session:   session,
		appConfig: appConfig,
	}
}

// ListPages handles GET /v1/pages
func (h *APIHandlers) ListPages(c *gin.Context) {
	descriptors := h.registry.Descriptors()
	pages := make([]gin.H, 0, len(descriptors))
	for _, d := range descriptors {
		elements := make(map[string]string, len(d.Locators))
		for name, loc := range d.Locators {
			elements[name] = loc.String()
		}
		pages = append(pages, gin.H{
			"key":       d.Key,
			"successor": d.Successor,
			"terminal":  d.Terminal(),
			"type":      d.Type().String(),
			"elements":  elements,
		})
	}
	c.JSON(http.StatusOK, gin.H{"pages": pages})
}

// ListChains handles GET /v1/chains
func (h *APIHandlers) ListChains(c *gin.Context) {
	names := h.runner.Names()
	chains := make([]gin.H, 0, len(names))
	for _, name := range names {
		cfg, ok := h.runner.Configuration(name)
		if !ok {
			continue
		}
		chains = append(chains, gin.H{
			"name":        cfg.Name,
			"description": cfg.Description,
			"start":       cfg.Start,
			"url":         cfg.URL,
			"steps":       len(cfg.Steps),
		})
	}
	c.JSON(http.StatusOK, gin.H{"chains": chains})
}

// ListRuns handles GET /v1/runs
func (h *APIHandlers) ListRuns(c *gin.Context) {
	if id := c.Query("id"); id != "" {
		run, ok := h.processor.Run(id)
		if !ok {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: ErrorDetail{Message: fmt.Sprintf("run %s not found", id), Type: "invalid_request_error"},
			})
			return
		}
		c.JSON(http.StatusOK, run)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": h.processor.History(), "pending": h.queue.Pending()})
}

// RunChain handles POST /v1/chains/run
func (h *APIHandlers) RunChain(c *gin.Context) {
	rawJson, err := c.GetRawData()
	// If data retrieval fails, return 400 error
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Message: fmt.Sprintf("Invalid request: %v", err), Type: "invalid_request_error"},
		})
		return
	}
	if !gjson.ValidBytes(rawJson) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Message: "Invalid request: body is not valid JSON", Type: "invalid_request_error"},
		})
		return
	}

	chain := gjson.GetBytes(rawJson, "chain").String()
	if chain == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Message: "chain is required", Type: "invalid_request_error"},
		})
		return
	}
	cfg, ok := h.runner.Configuration(chain)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{Message: fmt.Sprintf("chain %s not found", chain), Type: "invalid_request_error"},
		})
		return
	}

	paramsResult := gjson.GetBytes(rawJson, "params")
	if paramsResult.Exists() && !paramsResult.IsObject() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Message: "params must be an object", Type: "invalid_request_error"},
		})
		return
	}
	params := page.Params{}
	paramsResult.ForEach(func(key, value gjson.Result) bool {
		params[key.String()] = value.Value()
		return true
	})
	delete(params, page.ParamDriver)

	task := &RequestTask{
		ID:        uuid.New().String(),
		Chain:     chain,
		Params:    params,
		Response:  make(chan *TaskResponse, 1),
		CreatedAt: time.Now(),
	}

	if err = h.queue.AddTask(task); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, ErrQueueFull) {
			status = http.StatusTooManyRequests
		}
		c.JSON(status, ErrorResponse{
			Error: ErrorDetail{
				Message: fmt.Sprintf("Failed to queue request: %v", err),
				Type:    "server_error",
			},
		})
		return
	}

	select {
	case response := <-task.Response:
		status := http.StatusOK
		if !response.Success {
			status = http.StatusUnprocessableEntity
		}
		c.Data(status, "application/json", []byte(runJSON(task, response)))

	case <-c.Request.Context().Done():
		log.Debugf("Client disconnected: %v", c.Request.Context().Err())
		h.processor.Cancel(task.ID)

	case <-time.After(h.processor.waitTimeout(len(cfg.Steps))):
		h.processor.Cancel(task.ID)
		c.JSON(http.StatusRequestTimeout, ErrorResponse{
			Error: ErrorDetail{
				Message: "Request timeout",
				Type:    "timeout_error",
			},
		})
	}
}

func runJSON(task *RequestTask, response *TaskResponse) string {
	out := `{"id":"","chain":"","success":false}`
	out, _ = sjson.Set(out, "id", task.ID)
	out, _ = sjson.Set(out, "chain", task.Chain)
	out, _ = sjson.Set(out, "success", response.Success)

	if result := response.Result; result != nil {
		out, _ = sjson.Set(out, "pages", result.Pages)
		out, _ = sjson.Set(out, "final", result.Final)
		out, _ = sjson.Set(out, "url", result.URL)
		out, _ = sjson.Set(out, "title", result.Title)
		out, _ = sjson.Set(out, "params", result.Params)
		out, _ = sjson.Set(out, "duration_ms", result.Duration.Milliseconds())
	}

	if err := response.Error; err != nil {
		out, _ = sjson.Set(out, "error.message", err.Error())
		out, _ = sjson.Set(out, "error.type", errorType(err))
		var notLoaded *page.PageNotLoadedError
		var mismatch *page.TitleMismatchError
		switch {
		case errors.As(err, &notLoaded):
			out, _ = sjson.Set(out, "error.screenshot", notLoaded.Screenshot)
		case errors.As(err, &mismatch):
			out, _ = sjson.Set(out, "error.screenshot", mismatch.Screenshot)
		}
	}
	return out
}

func errorType(err error) string {
	var (
		notLoaded   *page.PageNotLoadedError
		mismatch    *page.TitleMismatchError
		unknown     *page.UnknownPageError
		failure     *page.ActionFailureError
		successor   *page.SuccessorMismatchError
		expectation *runner.ExpectationError
	)
	switch {
	case errors.As(err, &notLoaded):
		return "page_not_loaded"
	case errors.As(err, &mismatch):
		return "title_mismatch"
	case errors.As(err, &unknown):
		return "unknown_page"
	case errors.As(err, &failure):
		return "action_failure"
	case errors.As(err, &successor):
		return "successor_mismatch"
	case errors.As(err, &expectation):
		return "expectation_failed"
	case errors.Is(err, runner.ErrAborted), errors.Is(err, context.Canceled), errors.Is(err, ErrQueueStopped):
		return "aborted"
	default:
		return "chain_error"
	}
}

// TakeScreenshot handles GET /v1/screenshot
func (h *APIHandlers) TakeScreenshot(c *gin.Context) {
	defer ScreenshotMutex.Unlock()
	ScreenshotMutex.Lock()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	screenshot, err := h.session.Driver.Screenshot(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Message: fmt.Sprintf("Screenshot failed: %v", err), Type: "server_error"},
		})
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/png", screenshot)
}
