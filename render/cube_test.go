package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.viam.com/test"

	"go.viam.com/artrack/rimage/transform"
)

func TestCubeModel(t *testing.T) {
	edges := CubeEdges()
	test.That(t, len(edges), test.ShouldEqual, 12)
	for _, e := range edges {
		// edges join vertices one axis apart
		d := CubeVertices[e[0]].Sub(CubeVertices[e[1]])
		test.That(t, d.Len(), test.ShouldAlmostEqual, 2)
	}
	for _, face := range CubeTriangleFans {
		// counter clockwise from outside: the fan normal points away from the center
		a, b, c := CubeVertices[face[0]], CubeVertices[face[1]], CubeVertices[face[2]]
		normal := b.Sub(a).Cross(c.Sub(a))
		test.That(t, normal.Dot(a), test.ShouldBeGreaterThan, 0)
	}
	test.That(t, CubeVertexColors[0], test.ShouldResemble, color.NRGBA{0, 0, 0, 255})
	test.That(t, CubeVertexColors[6], test.ShouldResemble, color.NRGBA{255, 255, 255, 255})
}

func TestCubeModelView(t *testing.T) {
	pose := mgl64.Translate3D(1, 2, -30)
	mv := CubeModelView(pose, 2)
	// scale first, then the unit lift along z, then the pose
	top := mv.Mul4x1(mgl64.Vec4{1, 1, 1, 1})
	test.That(t, top.ApproxEqual(mgl64.Vec4{3, 4, -27, 1}), test.ShouldBeTrue)
	bottom := mv.Mul4x1(mgl64.Vec4{0, 0, -1, 1})
	test.That(t, bottom.ApproxEqual(mgl64.Vec4{1, 2, -31, 1}), test.ShouldBeTrue)

	// at unit scale the bottom face lies on the target plane
	unit := CubeModelView(pose, 1)
	test.That(t, unit.Mul4x1(mgl64.Vec4{0, 0, -1, 1}).ApproxEqual(mgl64.Vec4{1, 2, -30, 1}), test.ShouldBeTrue)
}

func TestProjectVertex(t *testing.T) {
	projection := transform.FrustumFromParameters(transform.DefaultCameraParameters())
	viewport := image.Rect(0, 0, 640, 480)

	p, ok := ProjectVertex(projection, mgl64.Translate3D(0, 0, -10), mgl64.Vec3{0, 0, -1}, viewport)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.X, test.ShouldAlmostEqual, 320)
	test.That(t, p.Y, test.ShouldAlmostEqual, 240)

	// up in the render frame is up on screen
	p, ok = ProjectVertex(projection, mgl64.Translate3D(0, 0, -10), mgl64.Vec3{0, 1, -1}, viewport)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.Y, test.ShouldBeLessThan, 240)

	_, ok = ProjectVertex(projection, mgl64.Translate3D(0, 0, 10), mgl64.Vec3{}, viewport)
	test.That(t, ok, test.ShouldBeFalse)
	// eye z = -0.5 is closer than the near plane at 1
	_, ok = ProjectVertex(projection, mgl64.Translate3D(0, 0, -0.5), mgl64.Vec3{}, viewport)
	test.That(t, ok, test.ShouldBeFalse)
	// eye z = -1.5 is past it
	_, ok = ProjectVertex(projection, mgl64.Translate3D(0, 0, -0.5), mgl64.Vec3{0, 0, -1}, viewport)
	test.That(t, ok, test.ShouldBeTrue)
}

func TestDrawCubeOverlay(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 640, 480))
	projection := transform.FrustumFromParameters(transform.DefaultCameraParameters())

	out := DrawCubeOverlay(frame, projection, mgl64.Translate3D(0, 0, -20), 1)
	test.That(t, out.Bounds(), test.ShouldResemble, frame.Bounds())
	drawn := 0
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			if r, g, b, _ := out.At(x, y).RGBA(); r+g+b > 0 {
				drawn++
			}
		}
	}
	test.That(t, drawn, test.ShouldBeGreaterThan, 100)
	test.That(t, frame.GrayAt(320, 240).Y, test.ShouldEqual, 0)

	// a cube behind the camera leaves the frame alone
	out = DrawCubeOverlay(frame, projection, mgl64.Translate3D(0, 0, 20), 1)
	for y := 0; y < 480; y += 7 {
		for x := 0; x < 640; x += 7 {
			r, g, b, _ := out.At(x, y).RGBA()
			test.That(t, r+g+b, test.ShouldEqual, 0)
		}
	}

	labeled := DrawStatus(frame, "found")
	test.That(t, labeled.Bounds(), test.ShouldResemble, frame.Bounds())
}
