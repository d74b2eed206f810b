package handlers

import (
	"context"
	"net/http"
	"time"

	"athena/interview/internal/catalog"
	"athena/interview/internal/config"
	"athena/interview/internal/llm"
	"athena/interview/internal/utils"
)

type ReadinessCheck struct {
	Status  string `json:"status"` // "ok" | "failed"
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"`  // "ready" | "not_ready"
	Service string                    `json:"service"` // Service name
	Checks  map[string]ReadinessCheck `json:"checks"`  // Individual check results
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// TemplateSource reports which evaluator prompt versions are loaded.
type TemplateSource interface {
	HasVersion(version string) bool
}

type HealthHandler struct {
	db            Pinger
	provider      llm.Provider
	promptManager TemplateSource
	catalog       catalog.Catalog
	config        *config.Config
}

func NewHealthHandler(db Pinger, provider llm.Provider, promptManager TemplateSource, cat catalog.Catalog, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		db:            db,
		provider:      provider,
		promptManager: promptManager,
		catalog:       cat,
		config:        cfg,
	}
}

func (handler *HealthHandler) HealthzHandler(writer http.ResponseWriter, request *http.Request) {
	utils.JSON(writer, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "interview",
		"version": "1.0.0",
	})
}

func (handler *HealthHandler) ReadyzHandler(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]ReadinessCheck)
	check := func(name string, ok bool, message string) {
		if ok {
			checks[name] = ReadinessCheck{Status: "ok"}
			return
		}
		checks[name] = ReadinessCheck{Status: "failed", Message: message}
	}

	if handler.config == nil {
		check("configuration", false, "Configuration not loaded")
	} else {
		check("configuration", true, "")
	}

	if handler.db == nil {
		check("database", false, "Database not initialized")
	} else if err := handler.db.PingContext(ctx); err != nil {
		check("database", false, err.Error())
	} else {
		check("database", true, "")
	}

	check("provider", handler.provider != nil, "AI provider not initialized")

	switch {
	case handler.promptManager == nil:
		check("prompt_manager", false, "Prompt manager not initialized")
	case handler.config != nil && !handler.promptManager.HasVersion(handler.config.EvaluatorVersionID):
		check("prompt_manager", false, "No templates for evaluator version "+handler.config.EvaluatorVersionID)
	default:
		check("prompt_manager", true, "")
	}

	switch {
	case handler.catalog == nil:
		check("catalog", false, "Prompt catalog not initialized")
	case handler.config != nil:
		_, err := handler.catalog.Resolve(ctx, handler.config.PromptVersionID)
		if err != nil {
			check("catalog", false, err.Error())
		} else {
			check("catalog", true, "")
		}
	default:
		check("catalog", true, "")
	}

	response := ReadinessResponse{
		Status:  "ready",
		Service: "interview",
		Checks:  checks,
	}
	for _, c := range checks {
		if c.Status != "ok" {
			response.Status = "not_ready"
		}
	}

	if response.Status == "ready" {
		utils.JSON(writer, http.StatusOK, response)
	} else {
		utils.JSON(writer, http.StatusServiceUnavailable, response)
	}
}
