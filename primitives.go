package stratum

// Mesh constructors for common shapes. Shared vertices are emitted as
// duplicates on purpose; the packer's dedup collapses them, which also
// makes these useful as end-to-end packing fixtures.

// NewTriangle returns a 2D triangle centered at the origin with uv
// coordinates, size being the half-extent.
func NewTriangle(size float32) *Mesh {
	return FromVertices(
		NewVertex(0, size).Set("uv", Float2(0.5, 0)),
		NewVertex(-size, -size).Set("uv", Float2(0, 1)),
		NewVertex(size, -size).Set("uv", Float2(1, 1)),
	)
}

// NewQuad returns a 2D rectangle between min and max as two triangles with
// uv coordinates.
func NewQuad(minX, minY, maxX, maxY float32) *Mesh {
	v0 := NewVertex(minX, minY).Set("uv", Float2(0, 0))
	v1 := NewVertex(maxX, minY).Set("uv", Float2(1, 0))
	v2 := NewVertex(maxX, maxY).Set("uv", Float2(1, 1))
	v3 := NewVertex(minX, maxY).Set("uv", Float2(0, 1))

	// Triangle list v0,v1,v2 / v0,v2,v3; dedup restores the 4-vertex quad.
	return FromVertices(v0, v1, v2, v0.Clone(), v2.Clone(), v3)
}

// NewCube returns an axis-aligned cube with the given half-extent, 12
// triangles of 3D positions with per-face normals.
func NewCube(half float32) *Mesh {
	h := half
	corners := [8][3]float32{
		{-h, -h, -h}, {h, -h, -h}, {h, h, -h}, {-h, h, -h},
		{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h},
	}
	faces := [6]struct {
		idx    [4]int
		normal [3]float32
	}{
		{idx: [4]int{4, 5, 6, 7}, normal: [3]float32{0, 0, 1}},  // front
		{idx: [4]int{1, 0, 3, 2}, normal: [3]float32{0, 0, -1}}, // back
		{idx: [4]int{5, 1, 2, 6}, normal: [3]float32{1, 0, 0}},  // right
		{idx: [4]int{0, 4, 7, 3}, normal: [3]float32{-1, 0, 0}}, // left
		{idx: [4]int{7, 6, 2, 3}, normal: [3]float32{0, 1, 0}},  // top
		{idx: [4]int{0, 1, 5, 4}, normal: [3]float32{0, -1, 0}}, // bottom
	}

	m := NewMesh()
	for _, face := range faces {
		quad := make([]*Vertex, 4)
		for i, ci := range face.idx {
			c := corners[ci]
			quad[i] = NewVertex(c[0], c[1], c[2]).
				Set("normal", Float3(face.normal[0], face.normal[1], face.normal[2]))
		}
		// Two triangles per face, corner 0 and 2 shared.
		_ = m.AddVertices(quad[0], quad[1], quad[2], quad[0].Clone(), quad[2].Clone(), quad[3])
	}
	return m
}
