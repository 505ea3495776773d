package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes attaches every veto endpoint to the router.
//
//	POST /v1/veto/compute                - resolve veto sets
//	GET  /v1/veto/runs                   - list archived runs
//	GET  /v1/veto/runs/:id               - fetch one archived run
//	GET  /v1/veto/instruments            - list loaded instruments
//	GET  /v1/veto/flags/:instrument      - list categorised flags
//	GET  /v1/veto/definer                - describe the loaded definer
//	GET  /healthz, /readyz               - probes
func RegisterRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/healthz", h.HandleHealth)
	r.GET("/readyz", h.HandleReady)

	v1 := r.Group("/v1")
	veto := v1.Group("/veto")
	{
		veto.POST("/compute", h.HandleCompute)
		veto.GET("/runs", h.HandleListRuns)
		veto.GET("/runs/:id", h.HandleGetRun)
		veto.GET("/instruments", h.HandleInstruments)
		veto.GET("/flags/:instrument", h.HandleFlags)
		veto.GET("/definer", h.HandleDefiner)
	}
}
