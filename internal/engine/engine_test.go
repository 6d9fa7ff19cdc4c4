package engine_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/phaselab/internal/analysis"
	"github.com/san-kum/phaselab/internal/config"
	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/engine"
	"github.com/san-kum/phaselab/internal/systems"
)

func field(err error) string {
	var ve *dynamo.ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}

var _ = Describe("Engine", func() {
	var (
		eng *engine.Engine
		ctx context.Context
	)

	BeforeEach(func() {
		eng = engine.New(systems.NewRegistry(), config.DefaultConfig().Defaults, nil)
		ctx = context.Background()
	})

	Describe("continuous attractors", func() {
		It("classifies the classic Lorenz system as chaotic", func() {
			res, err := eng.CalculateLyapunov(ctx, engine.LyapunovRequest{
				SystemInput:       engine.SystemInput{SystemType: "lorenz", Parameters: dynamo.Params{"sigma": 10, "rho": 28, "beta": 8.0 / 3.0}},
				InitialConditions: engine.Vector{1, 1, 1},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Exponents).To(HaveLen(3))
			Expect(res.Chaotic).To(BeTrue())
			Expect(res.Largest).To(BeNumerically("~", 0.9, 0.4))
			Expect(res.Options).To(BeAssignableToTypeOf(analysis.LyapunovOptions{}))
		})

		It("cross-checks with the separation method", func() {
			res, err := eng.CalculateLyapunov(ctx, engine.LyapunovRequest{
				SystemInput: engine.SystemInput{SystemType: "lorenz"},
				Method:      "separation",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Exponents).To(HaveLen(1))
			Expect(res.Largest).To(BeNumerically(">", 0))
		})

		It("integrates deterministically", func() {
			req := engine.TrajectoryRequest{
				SystemInput:       engine.SystemInput{SystemType: "lorenz"},
				InitialConditions: engine.Vector{1, 1, 1},
				TSpan:             []float64{0, 5},
				Dt:                0.01,
			}
			a, err := eng.GenerateTrajectory(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			b, err := eng.GenerateTrajectory(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			Expect(a.Steps).To(Equal(500))
			Expect(a.Trajectory.States).To(HaveLen(501))
			Expect(a.Trajectory.States).To(Equal(b.Trajectory.States))
			Expect(a.Trajectory.Times).To(Equal(b.Trajectory.Times))
			Expect(a.Trajectory.Diverged).To(BeFalse())
			Expect(a.Trajectory.BoundedFraction).To(Equal(1.0))
		})

		It("shifts sample times to the start of t_span", func() {
			res, err := eng.GenerateTrajectory(ctx, engine.TrajectoryRequest{
				SystemInput: engine.SystemInput{SystemType: "rossler"},
				TSpan:       []float64{10, 11},
				Dt:          0.1,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Trajectory.Times[0]).To(Equal(10.0))
			Expect(res.Trajectory.Times[len(res.Trajectory.Times)-1]).To(BeNumerically("~", 11, 1e-9))
		})

		It("runs offset ensembles", func() {
			res, err := eng.GenerateTrajectory(ctx, engine.TrajectoryRequest{
				SystemInput:     engine.SystemInput{SystemType: "thomas"},
				TSpan:           []float64{0, 2},
				NumTrajectories: 3,
				Offset:          0.1,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Ensemble).To(HaveLen(3))
			Expect(res.Ensemble[2].InitialState[0]).To(BeNumerically("~", 0.3, 1e-12))
			Expect(res.Trajectory.States).To(Equal(res.Ensemble[0].States))
		})

		It("flags divergence instead of failing", func() {
			res, err := eng.GenerateTrajectory(ctx, engine.TrajectoryRequest{
				SystemInput:  engine.SystemInput{Matrix: [][]float64{{5, 0}, {0, 5}}},
				InitialPoint: engine.Vector{1, 1},
				TSpan:        []float64{0, 5},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Trajectory.Diverged).To(BeTrue())
			Expect(res.Trajectory.DivergedAt).To(BeNumerically(">", 0))
			Expect(res.Trajectory.BoundedFraction).To(BeNumerically("<", 1))
		})
	})

	Describe("logistic map", func() {
		logistic := func(r float64) engine.TrajectoryRequest {
			return engine.TrajectoryRequest{
				SystemInput: engine.SystemInput{MapType: "logistic", Parameters: dynamo.Params{"r": r}},
				X0:          engine.Vector{0.5},
				NSteps:      200,
			}
		}

		It("stays inside [0, 1] at r = 3.8", func() {
			res, err := eng.GenerateTrajectory(ctx, logistic(3.8))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Trajectory.States).To(HaveLen(201))
			for _, s := range res.Trajectory.States {
				Expect(s[0]).To(And(BeNumerically(">=", 0), BeNumerically("<=", 1)))
			}
			Expect(*res.Trajectory.Converged).To(BeFalse())
		})

		It("converges at r = 2.5", func() {
			res, err := eng.GenerateTrajectory(ctx, logistic(2.5))
			Expect(err).NotTo(HaveOccurred())
			Expect(*res.Trajectory.Converged).To(BeTrue())
			Expect(res.Trajectory.States[200][0]).To(BeNumerically("~", 0.6, 1e-9))
		})

		It("finds the 2-cycle at r = 3.2", func() {
			res, err := eng.AnalyzeDiscreteSystem(ctx, engine.DiscreteAnalysisRequest{
				SystemInput: engine.SystemInput{MapType: "logistic", Parameters: dynamo.Params{"r": 3.2}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.FixedPoints).To(HaveLen(2))
			for _, fp := range res.Stability {
				Expect(fp.Stability).To(Equal(analysis.Unstable))
			}
			Expect(res.PeriodicOrbits).To(HaveLen(1))
			Expect(res.PeriodicOrbits[0].Period).To(Equal(2))
			Expect(res.PeriodicOrbits[0].Stability).To(Equal(analysis.Stable))
			Expect(res.Lyapunov.Chaotic).To(BeFalse())
		})

		It("reports a swapped bifurcation range", func() {
			res, err := eng.GenerateBifurcationDiagram(ctx, engine.BifurcationRequest{
				SystemInput: engine.SystemInput{MapType: "logistic"},
				ParamRange:  []float64{2, -2},
				ParamSteps:  40,
				Transient:   50,
				Samples:     10,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Swapped).To(BeTrue())
			Expect(res.Min).To(Equal(-2.0))
			Expect(res.Max).To(Equal(2.0))
			Expect(res.Message).To(ContainSubstring("reversed"))
			Expect(res.Points).To(HaveLen(41))
			Expect(res.Points[0].Param).To(Equal(-2.0))
			Expect(res.Points[40].Param).To(Equal(2.0))
		})

		It("uses the map's own sweep by default", func() {
			res, err := eng.GenerateBifurcationDiagram(ctx, engine.BifurcationRequest{
				SystemInput: engine.SystemInput{MapType: "logistic"},
				ParamSteps:  30,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Param).To(Equal("r"))
			Expect(res.Min).To(Equal(2.5))
			Expect(res.Max).To(Equal(4.0))
			Expect(res.Samples).To(Equal(50))
			Expect(res.Points[0].Values).To(HaveLen(50))
		})

		It("builds cobweb and return maps", func() {
			cw, err := eng.GenerateCobwebPlot(ctx, engine.CobwebRequest{
				SystemInput: engine.SystemInput{MapType: "logistic", Parameters: dynamo.Params{"r": 3.2}},
				X0:          engine.Vector{0.2},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(cw.Path).To(HaveLen(41))
			Expect(cw.Path[0]).To(Equal(analysis.Point{X: 0.2, Y: 0.2}))

			rm, err := eng.GenerateReturnMap(ctx, engine.ReturnMapRequest{
				SystemInput: engine.SystemInput{MapType: "logistic", Parameters: dynamo.Params{"r": 3.9}},
				NSteps:      500,
				Delay:       2,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rm.Total).To(Equal(499))
			Expect(rm.XN).To(HaveLen(len(rm.XNDelay)))
		})
	})

	Describe("divergent maps", func() {
		It("flags a return map whose orbit escapes early", func() {
			rm, err := eng.GenerateReturnMap(ctx, engine.ReturnMapRequest{
				SystemInput: engine.SystemInput{MapType: "logistic", Parameters: dynamo.Params{"r": 10}},
				X0:          engine.Vector{0.5},
				NSteps:      200,
				Delay:       20,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rm.Diverged).To(BeTrue())
			Expect(rm.DivergedAt).To(BeNumerically("<", 21))
			Expect(rm.XN).To(BeEmpty())
			Expect(rm.Message).NotTo(BeEmpty())
		})
	})

	Describe("planar systems", func() {
		It("analyzes a center", func() {
			res, err := eng.AnalyzeSystem(ctx, engine.AnalyzeSystemRequest{Matrix: [][]float64{{0, 1}, {-1, 0}}})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Classification).To(Equal(analysis.Center))
			Expect(res.Trace).To(Equal(0.0))
			Expect(res.Det).To(Equal(1.0))
		})

		It("cuts the harmonic oscillator at x = 0 twice per period", func() {
			zero := 0.0
			res, err := eng.PoincareSection(ctx, engine.PoincareRequest{
				SystemInput:       engine.SystemInput{Matrix: [][]float64{{0, 1}, {-1, 0}}},
				InitialConditions: engine.Vector{1, 0},
				SectionPlane:      "x",
				SectionValue:      &zero,
				TSpan:             []float64{0, 10},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Count).To(Equal(3))
			for k, p := range res.Intersections {
				Expect(p.T).To(BeNumerically("~", math.Pi/2+float64(k)*math.Pi, 1e-3))
				Expect(math.Abs(p.X)).To(BeNumerically("~", 1, 1e-3))
			}
		})

		It("reports zero crossings as a message, not an error", func() {
			far := 500.0
			res, err := eng.PoincareSection(ctx, engine.PoincareRequest{
				SystemInput:  engine.SystemInput{SystemType: "lorenz"},
				SectionValue: &far,
				TSpan:        []float64{0, 5},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Intersections).To(BeEmpty())
			Expect(res.Message).To(ContainSubstring("no crossings"))
		})

		It("measures a circle as one-dimensional", func() {
			res, err := eng.FractalDimension(ctx, engine.FractalRequest{
				SystemInput:       engine.SystemInput{Matrix: [][]float64{{0, 1}, {-1, 0}}},
				InitialConditions: engine.Vector{1, 0},
				TSpan:             []float64{0, 50},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Discarded).To(Equal(500))
			Expect(res.BoxDimension).To(BeNumerically("~", 1, 0.25))
		})

		It("finds the oscillator frequency", func() {
			res, err := eng.Spectrum(ctx, engine.SpectrumRequest{
				SystemInput: engine.SystemInput{Matrix: [][]float64{{0, 1}, {-1, 0}}},
				TSpan:       []float64{0, 100},
				Dt:          0.05,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Peak).To(BeNumerically("~", 1/(2*math.Pi), 0.02))
		})

		It("iterates a planar map portrait", func() {
			res, err := eng.DiscretePhasePortrait(ctx, engine.DiscretePortraitRequest{
				SystemInput: engine.SystemInput{MapType: "rotation_2d", Parameters: dynamo.Params{"theta": 0.5, "r": 1}},
				NSteps:      100,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.X).To(HaveLen(101))
			for i := range res.X {
				Expect(math.Hypot(res.X[i], res.Y[i])).To(BeNumerically("~", 1, 1e-9))
			}
		})
	})

	Describe("expression systems", func() {
		duffing := engine.NonlinearInput{DxDt: "y", DyDt: "x - x^3"}

		It("classifies the equilibria of an undamped Duffing oscillator", func() {
			res, err := eng.AnalyzeNonlinear(ctx, engine.NonlinearAnalysisRequest{NonlinearInput: duffing})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Equilibria).To(HaveLen(3))
			Expect(res.Message).To(BeEmpty())
			types := map[float64]analysis.Classification{}
			for _, eq := range res.Equilibria {
				Expect(eq.Point[1]).To(BeNumerically("~", 0, 1e-6))
				types[math.Round(eq.Point[0])] = eq.Classification
			}
			Expect(types).To(Equal(map[float64]analysis.Classification{-1: analysis.Center, 0: analysis.Saddle, 1: analysis.Center}))
		})

		It("reports a field without zeros as a message", func() {
			res, err := eng.AnalyzeNonlinear(ctx, engine.NonlinearAnalysisRequest{NonlinearInput: engine.NonlinearInput{DxDt: "1", DyDt: "x"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Equilibria).To(BeEmpty())
			Expect(res.Message).NotTo(BeEmpty())
		})

		It("draws a portrait with nullclines", func() {
			res, err := eng.NonlinearPortrait(ctx, engine.NonlinearPortraitRequest{NonlinearInput: duffing, ViewRange: 2, GridSize: 11, Duration: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Field).To(HaveLen(121))
			Expect(res.XNullcline).NotTo(BeEmpty())
			Expect(res.YNullcline).NotTo(BeEmpty())
			Expect(res.Equilibria).To(HaveLen(3))
			Expect(res.Trajectories).To(HaveLen(8))
		})

		It("integrates the harmonic oscillator around the unit circle", func() {
			res, err := eng.NonlinearTrajectory(ctx, engine.NonlinearTrajectoryRequest{
				NonlinearInput: engine.NonlinearInput{DxDt: "y", DyDt: "-x"},
				InitialPoint:   []float64{1, 0},
				TSpan:          []float64{0, 2 * math.Pi},
				Dt:             0.01,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Trajectory.Diverged).To(BeFalse())
			last := res.Trajectory.States[len(res.Trajectory.States)-1]
			Expect(math.Hypot(last[0], last[1])).To(BeNumerically("~", 1, 1e-6))
		})

		It("writes out the derivation of a stable focus", func() {
			res, err := eng.Derivation(ctx, engine.AnalyzeSystemRequest{Matrix: [][]float64{{-0.5, 1}, {-1, -0.5}}})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Classification.Type).To(Equal(analysis.StableFocus))
			Expect(res.Polynomial.Coefficients).To(Equal([3]float64{1, 1, 1.25}))
			Expect(res.Lyapunov.P).NotTo(BeNil())
		})
	})

	Describe("validation", func() {
		DescribeTable("rejects bad requests before computing",
			func(run func() error, wantField string) {
				err := run()
				Expect(err).To(MatchError(dynamo.ErrValidation))
				Expect(field(err)).To(Equal(wantField))
			},
			Entry("unknown system", func() error {
				_, err := eng.GenerateTrajectory(ctx, engine.TrajectoryRequest{SystemInput: engine.SystemInput{SystemType: "duffing"}})
				return err
			}, "kind"),
			Entry("missing parameters", func() error {
				_, err := eng.GenerateTrajectory(ctx, engine.TrajectoryRequest{SystemInput: engine.SystemInput{SystemType: "lorenz", Parameters: dynamo.Params{"sigma": 10}}})
				return err
			}, "params"),
			Entry("wrong dimension", func() error {
				_, err := eng.GenerateTrajectory(ctx, engine.TrajectoryRequest{SystemInput: engine.SystemInput{SystemType: "lorenz"}, InitialConditions: engine.Vector{1, 2}})
				return err
			}, "initial_conditions"),
			Entry("zero-width range", func() error {
				_, err := eng.GenerateBifurcationDiagram(ctx, engine.BifurcationRequest{SystemInput: engine.SystemInput{MapType: "logistic"}, ParamRange: []float64{3, 3}})
				return err
			}, "param_range"),
			Entry("bifurcation of a flow", func() error {
				_, err := eng.GenerateBifurcationDiagram(ctx, engine.BifurcationRequest{SystemInput: engine.SystemInput{SystemType: "lorenz"}})
				return err
			}, "system_type"),
			Entry("section of a map", func() error {
				_, err := eng.PoincareSection(ctx, engine.PoincareRequest{SystemInput: engine.SystemInput{MapType: "henon"}})
				return err
			}, "system_type"),
			Entry("cobweb of a planar map", func() error {
				_, err := eng.GenerateCobwebPlot(ctx, engine.CobwebRequest{SystemInput: engine.SystemInput{MapType: "henon"}})
				return err
			}, "map_type"),
			Entry("bad plane", func() error {
				_, err := eng.PoincareSection(ctx, engine.PoincareRequest{SectionPlane: "w"})
				return err
			}, "section_plane"),
			Entry("z plane of a planar flow", func() error {
				_, err := eng.PoincareSection(ctx, engine.PoincareRequest{SystemInput: engine.SystemInput{SystemType: "linear"}, SectionPlane: "z"})
				return err
			}, "section_plane"),
			Entry("reversed t_span", func() error {
				_, err := eng.GenerateTrajectory(ctx, engine.TrajectoryRequest{TSpan: []float64{5, 1}})
				return err
			}, "t_span"),
			Entry("non-square matrix", func() error {
				_, err := eng.AnalyzeSystem(ctx, engine.AnalyzeSystemRequest{Matrix: [][]float64{{1, 2}, {3, 4}, {5, 6}}})
				return err
			}, "matrix"),
			Entry("matrix with a nonlinear system", func() error {
				_, err := eng.GenerateTrajectory(ctx, engine.TrajectoryRequest{
					SystemInput: engine.SystemInput{SystemType: "lorenz", Matrix: [][]float64{{0, 1}, {-1, 0}}},
					TSpan:       []float64{0, 1},
				})
				return err
			}, "matrix"),
			Entry("overflowing matrix", func() error {
				_, err := eng.AnalyzeSystem(ctx, engine.AnalyzeSystemRequest{Matrix: [][]float64{{1e200, 0}, {0, 1e200}}})
				return err
			}, "matrix"),
			Entry("unknown method", func() error {
				_, err := eng.CalculateLyapunov(ctx, engine.LyapunovRequest{Method: "qr"})
				return err
			}, "method"),
			Entry("expression that does not parse", func() error {
				_, err := eng.AnalyzeNonlinear(ctx, engine.NonlinearAnalysisRequest{NonlinearInput: engine.NonlinearInput{DxDt: "sin(", DyDt: "y"}})
				return err
			}, "dx_dt"),
			Entry("missing expression", func() error {
				_, err := eng.NonlinearTrajectory(ctx, engine.NonlinearTrajectoryRequest{NonlinearInput: engine.NonlinearInput{DxDt: "y"}})
				return err
			}, "dy_dt"),
			Entry("negative view range", func() error {
				_, err := eng.NonlinearPortrait(ctx, engine.NonlinearPortraitRequest{NonlinearInput: engine.NonlinearInput{DxDt: "y", DyDt: "-x"}, ViewRange: -1})
				return err
			}, "view_range"),
			Entry("delay beyond the orbit", func() error {
				_, err := eng.GenerateReturnMap(ctx, engine.ReturnMapRequest{NSteps: 5, Delay: 10})
				return err
			}, "delay"),
		)

		It("wraps dimension mismatches", func() {
			_, err := eng.GenerateCobwebPlot(ctx, engine.CobwebRequest{SystemInput: engine.SystemInput{MapType: "henon"}})
			Expect(errors.Is(err, dynamo.ErrDimensionMismatch)).To(BeTrue())
		})
	})

	Describe("cancellation", func() {
		It("aborts a bifurcation scan", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := eng.GenerateBifurcationDiagram(canceled, engine.BifurcationRequest{SystemInput: engine.SystemInput{MapType: "logistic"}})
			Expect(err).To(MatchError(dynamo.ErrCanceled))
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(engine.ErrorClass(err)).To(Equal("canceled"))
		})

		It("keeps a partial scan when asked", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			res, err := eng.GenerateBifurcationDiagram(canceled, engine.BifurcationRequest{
				SystemInput: engine.SystemInput{MapType: "logistic"},
				KeepPartial: true,
			})
			Expect(err).To(MatchError(dynamo.ErrCanceled))
			Expect(res).NotTo(BeNil())
			Expect(res.Partial).To(BeTrue())
		})

		It("aborts an integration", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := eng.GenerateTrajectory(canceled, engine.TrajectoryRequest{SystemInput: engine.SystemInput{SystemType: "lorenz"}})
			Expect(err).To(MatchError(dynamo.ErrCanceled))
		})
	})

	It("lists every system", func() {
		models := eng.Systems()
		Expect(models).To(HaveLen(12))
		Expect(models[0].Kind).To(BeEquivalentTo("chua"))
	})
})
