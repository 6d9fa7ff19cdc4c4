package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/san-kum/phaselab/internal/config"
	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/engine"
	"github.com/san-kum/phaselab/internal/systems"
)

func (s *Server) setupRoutes() {
	r := s.router
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	e := s.engine
	api := r.Group("/api")
	api.GET("/systems", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "systems": e.Systems()})
	})
	api.GET("/presets", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "presets": config.Presets})
	})

	compute := api.Group("", s.limit(), s.deadline())
	{
		compute.POST("/analyze_system", handle(e.AnalyzeSystem))
		compute.POST("/generate_phase_portrait", handle(e.PhasePortrait))
		compute.POST("/linear_sweep", handle(e.LinearSweep))
		compute.POST("/get_derivation", handle(e.Derivation))

		compute.POST("/analyze_nonlinear", handle(e.AnalyzeNonlinear))
		compute.POST("/generate_nonlinear_portrait", handle(e.NonlinearPortrait))
		compute.POST("/compute_nonlinear_trajectory", handle(e.NonlinearTrajectory))

		compute.POST("/compute_trajectory", handle(e.GenerateTrajectory))
		compute.POST("/generate_attractor", handle(e.GenerateTrajectory))
		compute.POST("/poincare_section", handle(e.PoincareSection))
		compute.POST("/calculate_lyapunov", handle(e.CalculateLyapunov))
		compute.POST("/fractal_dimension", handle(e.FractalDimension))
		compute.POST("/power_spectrum", handle(e.Spectrum))

		discrete := handle(e.AnalyzeDiscreteSystem)
		compute.POST("/analyze_discrete_system", discrete)
		compute.POST("/analyze_discrete_map", discrete)
		compute.POST("/generate_discrete_trajectory", handle(func(ctx context.Context, req engine.TrajectoryRequest) (*engine.TrajectoryResult, error) {
			if req.MapType == "" && req.SystemType == "" {
				req.MapType = string(systems.Logistic)
			}
			return e.GenerateTrajectory(ctx, req)
		}))
		bifurcation := handle(e.GenerateBifurcationDiagram)
		compute.POST("/generate_bifurcation_diagram", bifurcation)
		compute.POST("/bifurcation_diagram", bifurcation)
		compute.POST("/generate_cobweb_plot", handle(e.GenerateCobwebPlot))
		compute.POST("/generate_return_map", handle(e.GenerateReturnMap))
		compute.POST("/discrete_phase_portrait", handle(e.DiscretePhasePortrait))
	}
}

// handle adapts one engine operation to a JSON POST handler. An empty body
// is the empty request.
func handle[Req, Res any](op func(context.Context, Req) (Res, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Req
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			fail(c, dynamo.Invalid("body", "%v", err))
			return
		}
		res, err := op(c.Request.Context(), req)
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, res)
	}
}

// respond writes res with a leading "success": true member.
func respond(c *gin.Context, res any) {
	body, err := json.Marshal(res)
	if err != nil {
		fail(c, err)
		return
	}
	out := []byte(`{"success":true`)
	switch {
	case len(body) > 2 && body[0] == '{':
		out = append(append(out, ','), body[1:]...)
	default:
		out = append(out, '}')
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", out)
}

// fail maps validation errors to 400, cancellation and deadlines to 503
// and everything else to 500.
func fail(c *gin.Context, err error) {
	body := gin.H{"success": false, "error": err.Error()}
	status := http.StatusInternalServerError
	switch engine.ErrorClass(err) {
	case "validation":
		status = http.StatusBadRequest
		var ve *dynamo.ValidationError
		if errors.As(err, &ve) && ve.Field != "" {
			body["field"] = ve.Field
		}
	case "canceled":
		status = http.StatusServiceUnavailable
	}
	c.AbortWithStatusJSON(status, body)
}
