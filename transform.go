package stratum

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// TransformId references a transform slot in a scene tree. Objects that
// share the same spatial position may share the same TransformId. The zero
// value is the root slot.
type TransformId uint32

// RootTransformId is the reserved slot 0: identity, parented to itself.
const RootTransformId = TransformId(0)

// LocalTransform is a spatial transform relative to a parent: position,
// unit-quaternion rotation and non-uniform scale. The zero position,
// identity rotation and unit scale form the identity transform.
type LocalTransform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// IdentityTransform returns the identity local transform.
func IdentityTransform() LocalTransform {
	return LocalTransform{
		Position: mgl32.Vec3{},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// IsIdentity reports exact equality with the identity transform.
func (t LocalTransform) IsIdentity() bool {
	return t == IdentityTransform()
}

// Combine composes t with other, t applied second:
//
//	position' = t.scale * (t.rotation * other.position) + t.position
//	rotation' = t.rotation * other.rotation
//	scale'    = t.scale * other.scale
func (t LocalTransform) Combine(other LocalTransform) LocalTransform {
	rotated := t.Rotation.Rotate(other.Position)
	return LocalTransform{
		Position: t.Position.Add(mulVec3(t.Scale, rotated)),
		Rotation: t.Rotation.Mul(other.Rotation),
		Scale:    mulVec3(t.Scale, other.Scale),
	}
}

// Inverse returns the transform undoing t.
func (t LocalTransform) Inverse() LocalTransform {
	scale := mgl32.Vec3{1 / t.Scale.X(), 1 / t.Scale.Y(), 1 / t.Scale.Z()}
	rotation := t.Rotation.Conjugate()
	position := mulVec3(scale, rotation.Rotate(t.Position)).Mul(-1)
	return LocalTransform{Position: position, Rotation: rotation, Scale: scale}
}

// Matrix returns the affine matrix translate * rotate * scale.
func (t LocalTransform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

func mulVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}

// Transform is one scene-tree entry: a local transform plus the parent
// slot reference. The zero value is a root-parented identity transform.
// Setters return the transform for chaining.
type Transform struct {
	parent TransformId
	local  LocalTransform
}

// NewTransform returns an identity transform parented to the root slot.
func NewTransform() Transform {
	return Transform{parent: RootTransformId, local: IdentityTransform()}
}

func (t *Transform) Parent() TransformId { return t.parent }

func (t *Transform) SetParent(parent TransformId) *Transform {
	t.parent = parent
	return t
}

// Local returns the local transform value.
func (t *Transform) Local() LocalTransform { return t.local }

func (t *Transform) SetLocal(local LocalTransform) *Transform {
	t.local = local
	return t
}

// HasMoved reports whether this transform differs from the identity, i.e.
// whether it has moved relative to its parent.
func (t *Transform) HasMoved() bool {
	return !t.local.IsIdentity()
}

func (t *Transform) Position() mgl32.Vec3 { return t.local.Position }

func (t *Transform) SetPosition(position mgl32.Vec3) *Transform {
	t.local.Position = position
	return t
}

// Translate moves the transform by offset, applied after the current
// transform: a plain addition to the position component.
func (t *Transform) Translate(offset mgl32.Vec3) *Transform {
	t.local.Position = t.local.Position.Add(offset)
	return t
}

// PreTranslate applies the offset before every transformation already in
// place: T(offset) combined with the current local transform.
func (t *Transform) PreTranslate(offset mgl32.Vec3) *Transform {
	other := IdentityTransform()
	other.Position = offset
	t.local = other.Combine(t.local)
	return t
}

// RotationAxisAngle returns the rotation as a normalized axis and an angle
// in degrees.
func (t *Transform) RotationAxisAngle() (mgl32.Vec3, float32) {
	axis, radians := quatAxisAngle(t.local.Rotation)
	return axis, mgl32.RadToDeg(radians)
}

// RotationAxisAngleRadians returns the rotation as a normalized axis and an
// angle in radians.
func (t *Transform) RotationAxisAngleRadians() (mgl32.Vec3, float32) {
	return quatAxisAngle(t.local.Rotation)
}

// RotationQuat returns the raw rotation quaternion.
func (t *Transform) RotationQuat() mgl32.Quat { return t.local.Rotation }

// SetRotation overwrites the rotation with an axis-angle in degrees.
func (t *Transform) SetRotation(axis mgl32.Vec3, degrees float32) *Transform {
	return t.SetRotationRadians(axis, mgl32.DegToRad(degrees))
}

// SetRotationRadians overwrites the rotation with an axis-angle in radians.
func (t *Transform) SetRotationRadians(axis mgl32.Vec3, radians float32) *Transform {
	t.local.Rotation = mgl32.QuatRotate(radians, axis)
	return t
}

// SetRotationQuat overwrites the rotation with a quaternion.
func (t *Transform) SetRotationQuat(quat mgl32.Quat) *Transform {
	t.local.Rotation = quat
	return t
}

// Rotate post-multiplies an axis-angle rotation (degrees) onto the current
// rotation: R' = R * rot.
func (t *Transform) Rotate(axis mgl32.Vec3, degrees float32) *Transform {
	return t.RotateRadians(axis, mgl32.DegToRad(degrees))
}

// RotateRadians post-multiplies an axis-angle rotation (radians).
func (t *Transform) RotateRadians(axis mgl32.Vec3, radians float32) *Transform {
	t.local.Rotation = t.local.Rotation.Mul(mgl32.QuatRotate(radians, axis))
	return t
}

// PreRotate applies the rotation (degrees) before every transformation
// already in place.
func (t *Transform) PreRotate(axis mgl32.Vec3, degrees float32) *Transform {
	return t.PreRotateRadians(axis, mgl32.DegToRad(degrees))
}

// PreRotateRadians applies the rotation (radians) before every
// transformation already in place.
func (t *Transform) PreRotateRadians(axis mgl32.Vec3, radians float32) *Transform {
	other := IdentityTransform()
	other.Rotation = mgl32.QuatRotate(radians, axis)
	t.local = other.Combine(t.local)
	return t
}

// LookAt derives the rotation facing target from the current position,
// using a right-handed basis with the given up vector.
func (t *Transform) LookAt(target, up mgl32.Vec3) *Transform {
	view := mgl32.LookAtV(t.local.Position, target, up)
	// The view matrix maps world to eye space; the object's rotation is
	// its inverse.
	t.local.Rotation = mgl32.Mat4ToQuat(view.Inv()).Normalize()
	return t
}

func (t *Transform) Scale() mgl32.Vec3 { return t.local.Scale }

func (t *Transform) SetScale(scale mgl32.Vec3) *Transform {
	t.local.Scale = scale
	return t
}

// SetUniformScale sets the same scale factor on all three axes.
func (t *Transform) SetUniformScale(factor float32) *Transform {
	t.local.Scale = mgl32.Vec3{factor, factor, factor}
	return t
}

func quatAxisAngle(q mgl32.Quat) (mgl32.Vec3, float32) {
	q = q.Normalize()
	w := q.W
	if w > 1 {
		w = 1
	} else if w < -1 {
		w = -1
	}
	angle := 2 * float32(math.Acos(float64(w)))
	s := float32(math.Sqrt(float64(1 - w*w)))
	if s < 1e-5 {
		// Angle close to zero, any normalized axis works.
		return mgl32.Vec3{1, 0, 0}, angle
	}
	return q.V.Mul(1 / s), angle
}

// GPUTransform is a global transform in a flat, upload-ready layout:
// three vec4 columns (position, quaternion xyzw, scale).
type GPUTransform struct {
	Position [4]float32
	Rotation [4]float32
	Scale    [4]float32
}

func newGPUTransform(t LocalTransform) GPUTransform {
	return GPUTransform{
		Position: [4]float32{t.Position.X(), t.Position.Y(), t.Position.Z(), 1},
		Rotation: [4]float32{t.Rotation.X(), t.Rotation.Y(), t.Rotation.Z(), t.Rotation.W},
		Scale:    [4]float32{t.Scale.X(), t.Scale.Y(), t.Scale.Z(), 1},
	}
}

// LocalTransform converts back to the math-friendly representation.
func (g GPUTransform) LocalTransform() LocalTransform {
	return LocalTransform{
		Position: mgl32.Vec3{g.Position[0], g.Position[1], g.Position[2]},
		Rotation: mgl32.Quat{
			W: g.Rotation[3],
			V: mgl32.Vec3{g.Rotation[0], g.Rotation[1], g.Rotation[2]},
		},
		Scale: mgl32.Vec3{g.Scale[0], g.Scale[1], g.Scale[2]},
	}
}

// InverseMatrix returns the matrix of the inverted transform, the shape
// camera-style consumers want.
func (g GPUTransform) InverseMatrix() mgl32.Mat4 {
	return g.LocalTransform().Inverse().Matrix()
}
