package controllers

import (
	"context"
	"log"
	"net/http"
	"time"
)

// HealthCheck возвращает статус "OK", если сервер и базы данных отвечают.
// Пример URL: GET /api/Service/status
func (a *API) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "OK"}
	code := http.StatusOK
	for name, db := range a.Databases {
		if err := db.PingContext(ctx); err != nil {
			log.Printf("HealthCheck: база %s недоступна: %v", name, err)
			status[name] = "unavailable"
			status["status"] = "DEGRADED"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	respondJSON(w, code, status)
}
