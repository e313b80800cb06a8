package geom

import "github.com/matzehuels/adjoint/pkg/ad"

// ImplicitEllipse describes the ellipse A*(X-x)^2 + B*(Y-y)^2 = C.
type ImplicitEllipse struct {
	A, B, C ad.ID
	X, Y    ad.ID
}

// ImplicitHalfPlane describes the half-plane A*X + B*Y <= C.
type ImplicitHalfPlane struct {
	A, B, C ad.ID
}

// ImplicitEllipseFunc evaluates the ellipse's implicit function at (x, y).
// It is negative inside, zero on the boundary and positive outside.
func ImplicitEllipseFunc(g *ad.Graph, e ImplicitEllipse, x, y ad.ID) ad.ID {
	dx := g.Mul(e.A, g.Squared(g.Sub(x, e.X)))
	dy := g.Mul(e.B, g.Squared(g.Sub(y, e.Y)))
	return g.Sub(g.Add(dx, dy), e.C)
}

// ImplicitHalfPlaneFunc evaluates the half-plane's implicit function at
// (x, y). It is non-positive inside.
func ImplicitHalfPlaneFunc(g *ad.Graph, h ImplicitHalfPlane, x, y ad.ID) ad.ID {
	return g.Sub(g.Add(g.Mul(h.A, x), g.Mul(h.B, y)), h.C)
}

// OutwardUnitNormal returns the unit normal of the line through seg that
// points away from inside.
func OutwardUnitNormal(g *ad.Graph, seg [2]Vec, inside Vec) Vec {
	n := VNormalize(g, Rot90(g, VSub(g, seg[1], seg[0])))
	toward := VDot(g, n, VSub(g, inside, seg[0]))
	flip := g.IfCond(g.Gt(toward, g.Const(0)), g.Const(-1), g.Const(1))
	return VScale(g, flip, n)
}

// HalfPlaneToImplicit returns the half-plane bounded by the line through seg
// that contains inside, shrunk by padding.
func HalfPlaneToImplicit(g *ad.Graph, seg [2]Vec, inside Vec, padding ad.ID) ImplicitHalfPlane {
	n := OutwardUnitNormal(g, seg, inside)
	return ImplicitHalfPlane{
		A: n[0],
		B: n[1],
		C: g.Sub(VDot(g, n, seg[0]), padding),
	}
}

// EllipseToImplicit converts an axis-aligned ellipse with radii rx and ry,
// grown by padding, to implicit form.
func EllipseToImplicit(g *ad.Graph, center Vec, rx, ry, padding ad.ID) ImplicitEllipse {
	rx = g.Add(rx, padding)
	ry = g.Add(ry, padding)
	return ImplicitEllipse{
		A: g.Div(ry, rx),
		B: g.Div(rx, ry),
		C: g.Mul(rx, ry),
		X: center[0],
		Y: center[1],
	}
}

// CircleToImplicitEllipse converts a circle of radius r, grown by padding,
// to implicit form.
func CircleToImplicitEllipse(g *ad.Graph, center Vec, r, padding ad.ID) ImplicitEllipse {
	one := g.Const(1)
	return ImplicitEllipse{
		A: one,
		B: one,
		C: g.Squared(g.Add(r, padding)),
		X: center[0],
		Y: center[1],
	}
}

// ClosestPointCircle returns the point on the circle's boundary closest to
// pt. For pt at the center the result is the center itself.
func ClosestPointCircle(g *ad.Graph, center Vec, r ad.ID, pt Vec) Vec {
	dir := VNormalize(g, VSub(g, pt, center))
	return VAdd(g, center, VScale(g, r, dir))
}
