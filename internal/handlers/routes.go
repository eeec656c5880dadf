package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	lessons := LessonHandler{Service: deps.Lessons, Limiter: deps.Limiter, Media: deps.Media}
	progress := ProgressHandler{Progress: deps.Progress}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/lessons", lessons.Collection)
	mux.HandleFunc("/api/v1/lessons/{id}", lessons.Item)
	mux.HandleFunc("/api/v1/modules/{id}/lessons", lessons.ModuleLessons)
	mux.HandleFunc("/api/v1/progress/update", progress.Update)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Lessons  LessonService
	Progress ProgressStore
	Limiter  RateLimiter
	Media    MediaURLs
}
