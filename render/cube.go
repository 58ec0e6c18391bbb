// Package render holds what an overlay renderer needs to draw the virtual cube on a tracked target:
// the cube model, its model-view composition and a software wireframe for debug output.
package render

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r2"
)

// CubeVertices are the corners of the cube spanning [-1, 1] on every axis.
var CubeVertices = [8]mgl64.Vec3{
	{-1, -1, -1},
	{1, -1, -1},
	{1, 1, -1},
	{-1, 1, -1},
	{-1, -1, 1},
	{1, -1, 1},
	{1, 1, 1},
	{-1, 1, 1},
}

// CubeTriangleFans lists the faces as 4 vertex fans, counter clockwise seen from outside.
var CubeTriangleFans = [6][4]int{
	{4, 5, 6, 7}, // +z
	{1, 0, 3, 2}, // -z
	{5, 1, 2, 6}, // +x
	{0, 4, 7, 3}, // -x
	{7, 6, 2, 3}, // +y
	{0, 1, 5, 4}, // -y
}

// CubeVertexColors maps each vertex position to an RGB corner of the color cube.
var CubeVertexColors = func() [8]color.NRGBA {
	var colors [8]color.NRGBA
	for i, v := range CubeVertices {
		colors[i] = color.NRGBA{
			R: uint8((v.X() + 1) / 2 * 255),
			G: uint8((v.Y() + 1) / 2 * 255),
			B: uint8((v.Z() + 1) / 2 * 255),
			A: 255,
		}
	}
	return colors
}()

// CubeEdges returns the 12 edges of the cube as vertex index pairs, lowest index first.
func CubeEdges() [][2]int {
	seen := make(map[[2]int]bool)
	edges := make([][2]int, 0, 12)
	for _, face := range CubeTriangleFans {
		for i := range face {
			a, b := face[i], face[(i+1)%len(face)]
			if a > b {
				a, b = b, a
			}
			if !seen[[2]int{a, b}] {
				seen[[2]int{a, b}] = true
				edges = append(edges, [2]int{a, b})
			}
		}
	}
	return edges
}

// CubeModelView scales the cube, moves it up one unit along the target normal and places it with
// the render pose of the target. At scale 1 the bottom face lies on the target plane.
func CubeModelView(pose mgl64.Mat4, scale float64) mgl64.Mat4 {
	return pose.Mul4(mgl64.Translate3D(0, 0, 1)).Mul4(mgl64.Scale3D(scale, scale, scale))
}

// ProjectVertex maps a model vertex to window pixels, with y pointing down. It returns false for
// vertices outside the clip volume depth range or behind the camera.
func ProjectVertex(projection, modelView mgl64.Mat4, v mgl64.Vec3, viewport image.Rectangle) (r2.Point, bool) {
	clip := projection.Mul4(modelView).Mul4x1(v.Vec4(1))
	if clip.W() <= 0 {
		return r2.Point{}, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	x := float64(viewport.Min.X) + (ndc.X()+1)/2*float64(viewport.Dx())
	y := float64(viewport.Min.Y) + (1-ndc.Y())/2*float64(viewport.Dy())
	return r2.Point{X: x, Y: y}, ndc.Z() >= -1 && ndc.Z() <= 1
}
