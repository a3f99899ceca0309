package stratum

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transformEpsilon = 1e-5

// Absolute per-component tolerance: float32 noise on components that should
// be exactly zero must still pass.
func assertVec3Near(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := 0; i < 3; i++ {
		if math.Abs(float64(want[i]-got[i])) > transformEpsilon {
			t.Errorf("Expected %v, got %v", want, got)
			return
		}
	}
}

// quatNear compares rotations with an absolute tolerance, treating q and -q
// as the same orientation.
func quatNear(want, got mgl32.Quat, epsilon float64) bool {
	near := func(a, b mgl32.Quat) bool {
		return math.Abs(float64(a.W-b.W)) <= epsilon &&
			math.Abs(float64(a.X()-b.X())) <= epsilon &&
			math.Abs(float64(a.Y()-b.Y())) <= epsilon &&
			math.Abs(float64(a.Z()-b.Z())) <= epsilon
	}
	return near(want, got) || near(want, got.Scale(-1))
}

func assertTransformNear(t *testing.T, want, got LocalTransform) {
	t.Helper()
	assertVec3Near(t, want.Position, got.Position)
	assertVec3Near(t, want.Scale, got.Scale)
	if !quatNear(want.Rotation, got.Rotation, transformEpsilon) {
		t.Errorf("Expected rotation %v, got %v", want.Rotation, got.Rotation)
	}
}

func TestLocalTransform_Identity(t *testing.T) {
	id := IdentityTransform()
	assert.True(t, id.IsIdentity())

	moved := id
	moved.Position = mgl32.Vec3{0, 0, 1}
	assert.False(t, moved.IsIdentity())

	other := LocalTransform{
		Position: mgl32.Vec3{1, 2, 3},
		Rotation: mgl32.QuatRotate(1.2, mgl32.Vec3{0, 1, 0}),
		Scale:    mgl32.Vec3{2, 2, 2},
	}
	assertTransformNear(t, other, id.Combine(other))
	assertTransformNear(t, other, other.Combine(id))
}

func TestLocalTransform_CombineScalesAndRotatesChildPosition(t *testing.T) {
	parent := LocalTransform{
		Position: mgl32.Vec3{10, 0, 0},
		Rotation: mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}),
		Scale:    mgl32.Vec3{2, 2, 2},
	}
	child := IdentityTransform()
	child.Position = mgl32.Vec3{1, 0, 0}

	// The child's x offset is rotated onto +y and doubled by the scale.
	global := parent.Combine(child)
	assertVec3Near(t, mgl32.Vec3{10, 2, 0}, global.Position)
	assertVec3Near(t, mgl32.Vec3{2, 2, 2}, global.Scale)
}

func TestLocalTransform_InverseUndoes(t *testing.T) {
	// Inverse is a left inverse: non-uniform scale does not commute with
	// rotation, so only inv.Combine(tr) cancels in general.
	tr := LocalTransform{
		Position: mgl32.Vec3{1, -2, 3},
		Rotation: mgl32.QuatRotate(mgl32.DegToRad(37), mgl32.Vec3{0, 1, 0}),
		Scale:    mgl32.Vec3{2, 4, 0.5},
	}
	assertTransformNear(t, IdentityTransform(), tr.Inverse().Combine(tr))

	// With uniform scale the inverse cancels from both sides.
	uniform := LocalTransform{
		Position: mgl32.Vec3{1, -2, 3},
		Rotation: mgl32.QuatRotate(mgl32.DegToRad(37), mgl32.Vec3{0, 1, 0}),
		Scale:    mgl32.Vec3{2, 2, 2},
	}
	assertTransformNear(t, IdentityTransform(), uniform.Inverse().Combine(uniform))
	assertTransformNear(t, IdentityTransform(), uniform.Combine(uniform.Inverse()))
}

func TestLocalTransform_MatrixMatchesCombine(t *testing.T) {
	tr := LocalTransform{
		Position: mgl32.Vec3{3, 1, -2},
		Rotation: mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 0, 1}),
		Scale:    mgl32.Vec3{2, 2, 2},
	}
	point := mgl32.Vec3{1, 1, 0}

	viaCombine := tr.Position.Add(mulVec3(tr.Scale, tr.Rotation.Rotate(point)))
	viaMatrix := mgl32.TransformCoordinate(point, tr.Matrix())
	assertVec3Near(t, viaCombine, viaMatrix)
}

func TestTransform_TranslateAndRotate(t *testing.T) {
	tr := NewTransform()
	assert.False(t, tr.HasMoved())

	tr.SetPosition(mgl32.Vec3{1, 0, 0}).Translate(mgl32.Vec3{0, 1, 0})
	assert.True(t, tr.HasMoved())
	assertVec3Near(t, mgl32.Vec3{1, 1, 0}, tr.Position())

	tr.SetRotation(mgl32.Vec3{0, 0, 1}, 90)
	axis, degrees := tr.RotationAxisAngle()
	assertVec3Near(t, mgl32.Vec3{0, 0, 1}, axis)
	assert.InDelta(t, 90, degrees, 1e-3)

	// Two quarter turns about the same axis accumulate.
	tr.Rotate(mgl32.Vec3{0, 0, 1}, 90)
	_, degrees = tr.RotationAxisAngle()
	assert.InDelta(t, 180, degrees, 1e-3)
}

func TestTransform_PreTranslateRespectsRotation(t *testing.T) {
	tr := NewTransform()
	tr.SetRotation(mgl32.Vec3{0, 0, 1}, 90)
	tr.PreTranslate(mgl32.Vec3{1, 0, 0})

	// The pre-applied offset lands in the parent frame, unrotated.
	assertVec3Near(t, mgl32.Vec3{1, 0, 0}, tr.Position())

	axis, degrees := tr.RotationAxisAngle()
	assertVec3Near(t, mgl32.Vec3{0, 0, 1}, axis)
	assert.InDelta(t, 90, degrees, 1e-3)
}

func TestTransform_LookAt(t *testing.T) {
	tr := NewTransform()
	tr.SetPosition(mgl32.Vec3{0, 0, 5}).LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})

	// Looking down -z from +z is the identity orientation.
	rot := tr.RotationQuat()
	if !quatNear(mgl32.QuatIdent(), rot, 1e-4) {
		t.Errorf("Expected identity rotation, got %v", rot)
	}

	// Looking at +x from the origin turns -z onto +x: -90 degrees about y.
	side := NewTransform()
	side.LookAt(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0})
	forward := side.RotationQuat().Rotate(mgl32.Vec3{0, 0, -1})
	assertVec3Near(t, mgl32.Vec3{1, 0, 0}, forward)
}

func TestTransform_Scale(t *testing.T) {
	tr := NewTransform()
	tr.SetUniformScale(3)
	assertVec3Near(t, mgl32.Vec3{3, 3, 3}, tr.Scale())

	tr.SetScale(mgl32.Vec3{1, 2, 3})
	assertVec3Near(t, mgl32.Vec3{1, 2, 3}, tr.Scale())
	assert.True(t, tr.HasMoved())
}

func TestGPUTransform_RoundTrip(t *testing.T) {
	local := LocalTransform{
		Position: mgl32.Vec3{1, 2, 3},
		Rotation: mgl32.QuatRotate(mgl32.DegToRad(60), mgl32.Vec3{0, 1, 0}),
		Scale:    mgl32.Vec3{2, 2, 2},
	}
	g := newGPUTransform(local)

	require.Equal(t, float32(1), g.Position[3])
	require.Equal(t, float32(1), g.Scale[3])
	assertTransformNear(t, local, g.LocalTransform())

	// InverseMatrix maps the transform's own position back to the origin.
	back := mgl32.TransformCoordinate(local.Position, g.InverseMatrix())
	assertVec3Near(t, mgl32.Vec3{}, back)
}
