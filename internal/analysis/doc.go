// Package analysis looks at how a scene moves over time.
//
// A [Probe] samples one cloth particle along an axis every frame; the
// samples go through [PowerSpectrum] and [DominantFrequency] to find how
// fast the cloth sways or flutters:
//
//	probe := analysis.NewProbe(cl, cl.Rows()-1, cl.Cols()/2, mgl64.Vec3{0, 1, 0})
//	simulator.AddObserver(probe)
//	...
//	hz, _ := analysis.DominantFrequency(probe.Samples(), dt)
package analysis
