package playback_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gdlab/internal/dataset"
	"github.com/san-kum/gdlab/internal/descent"
	"github.com/san-kum/gdlab/internal/playback"
)

func trajectory(steps int) *descent.Trajectory {
	ds, err := dataset.New([]float64{0, 1, 2}, []float64{0, 1, 2})
	Expect(err).NotTo(HaveOccurred())
	traj, err := descent.Generate(context.Background(), ds, descent.Config{
		Arity: descent.Two, LearningRate: 0.1, Steps: steps,
	}, descent.Params{})
	Expect(err).NotTo(HaveOccurred())
	return traj
}

var _ = Describe("Controller", func() {
	var (
		ctrl    *playback.Controller
		redraws []int
	)

	BeforeEach(func() {
		redraws = nil
		ctrl = playback.New(trajectory(5), playback.WithRedraw(func(pos int) {
			redraws = append(redraws, pos)
		}))
	})

	It("starts paused at the first step", func() {
		Expect(ctrl.Position()).To(Equal(1))
		Expect(ctrl.State()).To(Equal(playback.Paused))
		Expect(ctrl.Steps()).To(Equal(5))
	})

	Describe("Seek", func() {
		It("moves to the requested step and redraws", func() {
			Expect(ctrl.Seek(3)).To(Equal(3))
			Expect(ctrl.Position()).To(Equal(3))
			Expect(redraws).To(Equal([]int{3}))
		})

		DescribeTable("clamps out-of-range steps",
			func(k, want int) {
				Expect(ctrl.Seek(k)).To(Equal(want))
				Expect(ctrl.Position()).To(Equal(want))
			},
			Entry("zero", 0, 1),
			Entry("negative", -40, 1),
			Entry("past the end", 6, 5),
			Entry("far past the end", 1000, 5),
		)

		It("steps relative to the current position", func() {
			ctrl.Seek(2)
			Expect(ctrl.Step(2)).To(Equal(4))
			Expect(ctrl.Step(-10)).To(Equal(1))
		})
	})

	Describe("auto-play", func() {
		It("advances one step per tick and pauses at the end", func() {
			gen := ctrl.Play()
			Expect(ctrl.Playing()).To(BeTrue())

			for want := 2; want <= 5; want++ {
				Expect(ctrl.Tick(gen)).To(BeTrue())
				Expect(ctrl.Position()).To(Equal(want))
			}
			Expect(ctrl.State()).To(Equal(playback.Paused))
			Expect(ctrl.Tick(gen)).To(BeFalse())
			Expect(ctrl.Position()).To(Equal(5))
			Expect(redraws).To(Equal([]int{2, 3, 4, 5}))
		})

		It("ignores ticks while paused", func() {
			Expect(ctrl.Tick(ctrl.Generation())).To(BeFalse())
			Expect(ctrl.Position()).To(Equal(1))
		})

		It("drops ticks scheduled before a pause", func() {
			stale := ctrl.Play()
			ctrl.Pause()
			fresh := ctrl.Play()

			Expect(fresh).NotTo(Equal(stale))
			Expect(ctrl.Tick(stale)).To(BeFalse())
			Expect(ctrl.Position()).To(Equal(1))
			Expect(ctrl.Tick(fresh)).To(BeTrue())
			Expect(ctrl.Position()).To(Equal(2))
		})

		It("treats play at the final step as a no-op", func() {
			ctrl.Seek(5)
			gen := ctrl.Play()
			Expect(ctrl.State()).To(Equal(playback.Paused))
			Expect(ctrl.Tick(gen)).To(BeFalse())
			Expect(ctrl.Position()).To(Equal(5))
		})

		It("keeps play and pause idempotent", func() {
			g1 := ctrl.Play()
			g2 := ctrl.Play()
			Expect(g2).To(Equal(g1))

			ctrl.Pause()
			paused := ctrl.Generation()
			ctrl.Pause()
			Expect(ctrl.Generation()).To(Equal(paused))
		})

		It("toggles between states", func() {
			state, gen := ctrl.Toggle()
			Expect(state).To(Equal(playback.Playing))
			Expect(ctrl.Tick(gen)).To(BeTrue())

			state, _ = ctrl.Toggle()
			Expect(state).To(Equal(playback.Paused))
			Expect(ctrl.Tick(gen)).To(BeFalse())
		})

		It("keeps advancing after a seek while playing", func() {
			gen := ctrl.Play()
			ctrl.Seek(3)
			Expect(ctrl.Tick(gen)).To(BeTrue())
			Expect(ctrl.Position()).To(Equal(4))
		})
	})

	Describe("Reset", func() {
		It("always rewinds to step one and pauses", func() {
			sequences := [][]func(){
				{},
				{func() { ctrl.Play() }},
				{func() { ctrl.Seek(4) }},
				{func() { g := ctrl.Play(); ctrl.Tick(g); ctrl.Tick(g) }},
				{func() { ctrl.Seek(5) }, func() { ctrl.Play() }},
				{func() { g := ctrl.Play(); ctrl.Seek(2); ctrl.Tick(g) }, func() { ctrl.Pause() }, func() { ctrl.Play() }},
			}
			for _, seq := range sequences {
				for _, op := range seq {
					op()
				}
				ctrl.Reset()
				Expect(ctrl.Position()).To(Equal(1))
				Expect(ctrl.State()).To(Equal(playback.Paused))
			}
		})

		It("is reusable after reset", func() {
			gen := ctrl.Play()
			ctrl.Tick(gen)
			ctrl.Reset()
			Expect(ctrl.Tick(gen)).To(BeFalse())

			gen = ctrl.Play()
			Expect(ctrl.Tick(gen)).To(BeTrue())
			Expect(ctrl.Position()).To(Equal(2))
		})
	})

	It("handles a single-step trajectory", func() {
		one := playback.New(trajectory(1))
		Expect(one.Seek(10)).To(Equal(1))
		one.Play()
		Expect(one.State()).To(Equal(playback.Paused))
	})
})
