package geometry

// ResidualArrow returns an open polyline drawing an arrow from center to
// center+residual on section z, with a two-stroke head of length headLen.
// A zero residual yields just the shaft endpoints.
func ResidualArrow(center, residual Point2D, z, headLen float64) []Point3D {
	tip := center.Add(residual)
	pts := []Point3D{
		{X: center.X, Y: center.Y, Z: z},
		{X: tip.X, Y: tip.Y, Z: z},
	}
	length := residual.Length()
	if length == 0 {
		return pts
	}

	xr, yr := residual.X, residual.Y
	k := 0.707 * headLen / length
	pts = append(pts,
		Point3D{X: tip.X - k*(xr-yr), Y: tip.Y - k*(xr+yr), Z: z},
		Point3D{X: tip.X, Y: tip.Y, Z: z},
		Point3D{X: tip.X - k*(xr+yr), Y: tip.Y - k*(-xr+yr), Z: z},
	)
	return pts
}

// VerticalArrow returns an arrow next to at, pointing down (toward lower Y)
// when before is set and up otherwise. size is the overall arrow length.
func VerticalArrow(at Point3D, before bool, size int) []Point3D {
	dir := 1
	if before {
		dir = -1
	}
	half := float64(dir * size / 2)
	third := float64(dir * size / 3)
	full := float64(dir * size)

	p := at
	p.Y += half
	pts := []Point3D{p}
	p.Y += full
	pts = append(pts, p)
	p.X -= third
	p.Y -= third
	pts = append(pts, p)
	p.X += third
	p.Y += third
	pts = append(pts, p)
	p.X += third
	p.Y -= third
	pts = append(pts, p)
	return pts
}
