package playback_test

import (
	"context"
	"math"
	"math/rand"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gdlab/internal/dataset"
	"github.com/san-kum/gdlab/internal/descent"
	"github.com/san-kum/gdlab/internal/limits"
	"github.com/san-kum/gdlab/internal/playback"
)

func within(outer limits.Range) OmegaMatcher {
	return SatisfyAll(
		WithTransform(func(r limits.Range) float64 { return r.Lo }, BeNumerically(">=", outer.Lo)),
		WithTransform(func(r limits.Range) float64 { return r.Hi }, BeNumerically("<=", outer.Hi)),
	)
}

func setup(arity descent.Arity, steps int, opts playback.Options) *playback.Renderer {
	return setupRate(arity, steps, 0.01, opts)
}

func setupRate(arity descent.Arity, steps int, lr float64, opts playback.Options) *playback.Renderer {
	rng := rand.New(rand.NewSource(5))
	ds, err := dataset.Generate(dataset.Spec{
		N: 40, TrueSlope: 2.5, TrueIntercept: -1, NoiseStd: 1.2, XMin: -5, XMax: 7,
		ThroughOrigin: arity == descent.One,
	}, rng)
	Expect(err).NotTo(HaveOccurred())
	traj, err := descent.Generate(context.Background(), ds, descent.Config{
		Arity: arity, LearningRate: lr, Steps: steps,
	}, descent.InitialParams(ds, arity, rng, nil, nil))
	Expect(err).NotTo(HaveOccurred())
	return playback.NewRenderer(ds, traj, descent.ReferenceFit(ds, arity), opts)
}

var _ = Describe("HistoryIndices", func() {
	DescribeTable("samples with a stride and always includes the current step",
		func(k, stride, maxLines int, want []int) {
			Expect(playback.HistoryIndices(k, stride, maxLines)).To(Equal(want))
		},
		Entry("first step", 1, 10, 0, []int{1}),
		Entry("aligned", 21, 10, 0, []int{1, 11, 21}),
		Entry("unaligned adds k", 25, 10, 0, []int{1, 11, 21, 25}),
		Entry("capped keeps newest", 25, 10, 2, []int{21, 25}),
		Entry("stride below one", 3, 0, 0, []int{1, 2, 3}),
		Entry("cap of one", 7, 2, 1, []int{7}),
	)
})

var _ = Describe("Renderer", func() {
	for _, arity := range []descent.Arity{descent.One, descent.Two} {
		arity := arity

		Context("arity "+arity.String(), func() {
			var r *playback.Renderer

			BeforeEach(func() {
				r = setup(arity, 200, playback.Options{HistoryStride: 10, HistoryMax: 5})
			})

			It("renders the snapshot at the requested step", func() {
				f := r.Frame(37)
				Expect(f.Step).To(Equal(37))
				Expect(f.Steps).To(Equal(200))
				Expect(f.Current).To(Equal(r.Trajectory().At(37)))
				Expect(f.Path).To(HaveLen(37))
				Expect(f.Loss).To(HaveLen(37))
				Expect(f.Loss[36].Y).To(Equal(f.Current.Loss))
				Expect(f.Loss[0].X).To(Equal(1.0))
			})

			It("clamps out-of-range steps", func() {
				Expect(r.Frame(0).Step).To(Equal(1))
				Expect(r.Frame(999).Step).To(Equal(200))
			})

			It("keeps the history capped with the current step last and fading in", func() {
				f := r.Frame(97)
				Expect(f.History).To(HaveLen(5))
				Expect(f.History[len(f.History)-1].Step).To(Equal(97))
				for i := 1; i < len(f.History); i++ {
					Expect(f.History[i].Alpha).To(BeNumerically(">", f.History[i-1].Alpha))
				}
				Expect(f.History[len(f.History)-1].Alpha).To(BeNumerically("~", 0.95, 1e-12))
			})

			It("traces the path in the arity's parameter space", func() {
				f := r.Frame(10)
				s := r.Trajectory().At(10)
				if arity == descent.Two {
					Expect(f.Path[9]).To(Equal(playback.Point{X: s.Params.Slope, Y: s.Params.Intercept}))
				} else {
					Expect(f.Path[9]).To(Equal(playback.Point{X: s.Params.Slope, Y: s.Loss}))
				}
			})

			It("uses the same fixed bounds at every step", func() {
				Expect(r.Frame(1).Bounds).To(Equal(r.FixedBounds()))
				Expect(r.Frame(150).Bounds).To(Equal(r.FixedBounds()))
			})

			It("keeps dynamic bounds inside the fixed ones", func() {
				r.SetDynamicLimits(true)
				fixed := r.FixedBounds()
				for _, k := range []int{1, 2, 10, 50, 200} {
					b := r.Frame(k).Bounds
					Expect(b.PathX).To(within(fixed.PathX))
					Expect(b.PathY).To(within(fixed.PathY))
					Expect(b.LossY).To(within(fixed.LossY))
					Expect(b.LossX.Hi).To(BeNumerically(">=", 2))
					Expect(b.FitY).To(within(r.FitYCeiling()))
				}
				Expect(fixed.FitY).To(within(r.FitYCeiling()))
			})

			It("does not depend on the reference fit changing with position", func() {
				Expect(r.Frame(3).Reference).To(Equal(r.Frame(180).Reference))
			})

			It("spans the scatter with the fitted line", func() {
				f := r.Frame(5)
				lo, hi := r.Dataset().XRange()
				Expect(f.Fit.From.X).To(Equal(lo))
				Expect(f.Fit.To.X).To(Equal(hi))
				Expect(f.Fit.To.Y).To(BeNumerically("~", f.Current.Params.Predict(hi), 1e-12))
			})
		})
	}

	It("builds a grid surface for arity two and a curve for arity one", func() {
		two := setup(descent.Two, 10, playback.Options{})
		Expect(two.Surface().Z).To(HaveLen(220))
		Expect(two.Surface().Z[0]).To(HaveLen(220))

		one := setup(descent.One, 10, playback.Options{})
		Expect(one.Surface().B).To(BeEmpty())
		Expect(one.Surface().Curve()).To(HaveLen(400))
	})

	It("maps losses to bands in order", func() {
		s := setup(descent.Two, 10, playback.Options{}).Surface()
		rg := s.Range()
		Expect(s.Band(rg.Lo, 8)).To(Equal(0))
		Expect(s.Band(rg.Hi, 8)).To(Equal(7))
		Expect(s.Levels(4)).To(HaveLen(4))
	})

	It("defaults the history cap to the step count", func() {
		r := setup(descent.Two, 30, playback.Options{HistoryStride: 1})
		Expect(r.Frame(30).History).To(HaveLen(30))
	})
})

var _ = Describe("a diverging run", func() {
	for _, arity := range []descent.Arity{descent.Two, descent.One} {
		arity := arity
		finite := func(b playback.Bounds) {
			for _, rg := range []limits.Range{b.FitX, b.FitY, b.PathX, b.PathY, b.LossX, b.LossY} {
				Expect(rg.Finite()).To(BeTrue(), "range %v", rg)
			}
		}

		It("keeps every axis finite for "+arity.String(), func() {
			r := setupRate(arity, 500, 0.5, playback.Options{HistoryStride: 10})
			Expect(math.IsNaN(r.Trajectory().Final().Loss) || math.IsInf(r.Trajectory().Final().Loss, 0)).To(BeTrue())

			finite(r.FixedBounds())
			Expect(r.FitYCeiling().Finite()).To(BeTrue())
			for _, k := range []int{1, 20, 250, 500} {
				finite(r.Frame(k).Bounds)
			}
			r.SetDynamicLimits(true)
			for _, k := range []int{1, 20, 250, 500} {
				finite(r.Frame(k).Bounds)
			}
		})
	}

	It("puts non-finite losses in the top band", func() {
		s := setupRate(descent.Two, 500, 0.5, playback.Options{}).Surface()
		Expect(s.Range().Finite()).To(BeTrue())
		Expect(s.Band(math.NaN(), 8)).To(Equal(7))
		Expect(s.Band(math.Inf(1), 8)).To(Equal(7))
	})
})

var _ = Describe("Title", func() {
	It("aligns the current and target lines", func() {
		t := playback.Title(7, 500, descent.Two, descent.Params{Slope: 1, Intercept: -2}, descent.Params{Slope: 2.5, Intercept: -1})
		Expect(t[0]).To(HavePrefix("iter 7/500"))
		Expect(t[0]).To(ContainSubstring("m,b = (  1.000,  -2.000)"))
		Expect(t[1]).To(HavePrefix("target (OLS)"))
		Expect(strings.Index(t[0], "|")).To(Equal(strings.Index(t[1], "|")))
	})

	It("shows only the slope for arity one", func() {
		t := playback.Title(1, 5, descent.One, descent.Params{Slope: 3}, descent.Params{Slope: 2})
		Expect(t[0]).To(HaveSuffix("m = (  3.000)"))
	})
})
