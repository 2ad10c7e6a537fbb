package cloth

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/render"
)

var _ = Describe("Cloth", func() {
	var (
		cfg Config
		cl  *Cloth
	)

	BeforeEach(func() {
		cfg = DefaultConfig()
		cfg.Rows, cfg.Cols = 5, 5
		cfg.BaseDistance = 0.2
		cfg.Iterations = 20
	})

	JustBeforeEach(func() {
		var err error
		cl, err = New(cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("construction", func() {
		It("pins exactly the two top corners", func() {
			for i, p := range cl.Particles() {
				Expect(p.IsPinned()).To(Equal(i == 0 || i == cfg.Cols-1), "particle %d", i)
			}
		})

		It("gives every particle its own copy of the template forces", func() {
			a, _ := cl.GetParticle(1, 1)
			b, _ := cl.GetParticle(2, 2)
			Expect(a.AddForce(dynamo.NewWormhole(1, 1))).To(Succeed())

			forces, err := b.Forces()
			Expect(err).NotTo(HaveOccurred())
			Expect(forces).To(HaveLen(1))
			Expect(forces[0].Kind).To(Equal(dynamo.ForceGravity))
		})

		It("never lets its particles expire by age", func() {
			for i := 0; i < 100; i++ {
				_, err := cl.Update(0.016)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(cl.Alive()).To(Equal(cfg.Rows * cfg.Cols))
		})

		Context("with shear and bend disabled", func() {
			BeforeEach(func() {
				cfg.ShearRatio = 0
				cfg.BendRatio = -1
			})

			It("only links 4-neighbours", func() {
				for _, cc := range cl.Constraints() {
					Expect(cc.Kind).To(Equal(Stretch))
				}
				Expect(cl.Constraints()).To(HaveLen(2 * cfg.Rows * (cfg.Cols - 1)))
			})
		})
	})

	Describe("hanging under gravity", func() {
		It("stays finite and keeps every stretch link near its rest length", func() {
			for i := 0; i < 300; i++ {
				_, err := cl.Update(1.0 / 60)
				Expect(err).NotTo(HaveOccurred())
			}

			ps := cl.Particles()
			for _, p := range ps {
				Expect(p.State().IsValid()).To(BeTrue())
			}
			for _, cc := range cl.Constraints() {
				if cc.Kind != Stretch {
					continue
				}
				a, _ := ps[cc.P1].Position()
				b, _ := ps[cc.P2].Position()
				Expect(a.Sub(b).Len()).To(BeNumerically("~", cfg.BaseDistance, 0.05*cfg.BaseDistance))
			}
		})

		It("reports one residual per solver pass", func() {
			res, err := cl.Update(0.016)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(HaveLen(cfg.Iterations))
			for _, r := range res {
				Expect(math.IsNaN(r)).To(BeFalse())
				Expect(r).To(BeNumerically(">=", 0))
			}
		})
	})

	Describe("dragging the top edge", func() {
		It("carries the pinned corners with it", func() {
			offset := mgl64.Vec3{0.3, 0, 0.1}
			cl.MoveClothByOffset(offset)
			_, err := cl.Update(0.016)
			Expect(err).NotTo(HaveOccurred())

			tl, _ := cl.GetParticle(0, 0)
			pos, _ := tl.Position()
			Expect(pos.ApproxEqual(cfg.Origin.Add(offset))).To(BeTrue())
			Expect(cl.CurrentTopLeft().ApproxEqual(pos)).To(BeTrue())
		})
	})

	Describe("being shot", func() {
		It("leaves a hole in the rendered fabric", func() {
			var before render.Recorder
			cl.Render(&before, RenderOptions{Cloth: true})
			Expect(before.Quads).To(HaveLen((cfg.Rows - 1) * (cfg.Cols - 1)))

			centre, _ := cl.GetParticle(2, 2)
			pos, _ := centre.Position()
			Expect(cl.Puncture(pos, 0.25)).To(Equal(5))

			_, err := cl.Update(0.016)
			Expect(err).NotTo(HaveOccurred())

			var after render.Recorder
			cl.Render(&after, RenderOptions{Cloth: true, Particles: true})
			Expect(after.Markers).To(HaveLen(cfg.Rows*cfg.Cols - 5))
			Expect(len(after.Quads)).To(BeNumerically("<=", len(before.Quads)))

			for _, cc := range cl.Constraints() {
				p1 := cl.Particles()[cc.P1]
				p2 := cl.Particles()[cc.P2]
				Expect(p1.IsExpired() && p2.IsExpired()).To(BeFalse())
			}
		})
	})
})
