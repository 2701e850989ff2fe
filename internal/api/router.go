package api

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-activity-pipeline/docs"
	"go-activity-pipeline/internal/api/handler"
	"go-activity-pipeline/pkg/router"
)

func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.POST(handler.AnalysesPrefix, h.CreateAnalysis)
	r.GET(handler.AnalysesPrefix, h.ListAnalyses)
	// More specific routes first
	r.GET(handler.AnalysesPrefix+"/*/series", h.GetAnalysisSeries)
	r.GET(handler.AnalysesPrefix+"/*/errors", h.GetAnalysisErrors)
	r.GET(handler.AnalysesPrefix+"/*/progress", h.GetAnalysisProgress)
	// Generic analysis route last
	r.GET(handler.AnalysesPrefix+"/*", h.GetAnalysis)

	r.GET("/health", h.Health)
	r.Mount("/metrics", promhttp.Handler())
	r.Mount("/swagger/", httpSwagger.WrapHandler)
}
