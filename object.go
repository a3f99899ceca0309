package stratum

import "github.com/go-gl/mathgl/mgl32"

// SceneObject is the interface between a Scene and the things it stores.
// The bundled Object type implements it; callers are free to implement it
// on their own types instead.
type SceneObject interface {
	// Id returns the object's id, or the empty id before it joined a scene.
	Id() ObjectId
	// TransformId returns the assigned transform slot.
	TransformId() TransformId
	// HasMoved reports whether the declared local transform differs from
	// the identity, i.e. whether the object needs its own transform slot.
	HasMoved() bool
	// Transform returns the declared transform (local + parent slot).
	Transform() Transform
	// Components returns the component bundle to store.
	Components() []any

	// AddedToSceneTree hands the object its transform slot.
	AddedToSceneTree(id TransformId)
	// AddedToScene hands the object its identity and the owning scene,
	// so later mutation calls route to the right slot.
	AddedToScene(scene *Scene, id ObjectId)
	// RemovedFromScene clears the binding.
	RemovedFromScene()
}

// Object is the default SceneObject: a component bundle plus spatial data.
// Build it, position it, then hand it to Scene.Add; afterwards transform
// edits go through Apply.
type Object struct {
	scene       *Scene
	id          ObjectId
	transformId TransformId
	transform   Transform
	components  []any
}

func NewObject(components ...any) *Object {
	return &Object{
		transform:  NewTransform(),
		components: components,
	}
}

func (o *Object) Id() ObjectId             { return o.id }
func (o *Object) TransformId() TransformId { return o.transformId }
func (o *Object) HasMoved() bool           { return o.transform.HasMoved() }
func (o *Object) Transform() Transform     { return o.transform }
func (o *Object) Components() []any        { return o.components }

// TransformRef exposes the transform for chained setup calls, e.g.
// obj.TransformRef().SetPosition(...).Rotate(...).
func (o *Object) TransformRef() *Transform { return &o.transform }

// SetParent declares the parent transform slot used on Add.
func (o *Object) SetParent(parent TransformId) *Object {
	o.transform.SetParent(parent)
	return o
}

// SetPosition is a shorthand for TransformRef().SetPosition.
func (o *Object) SetPosition(position mgl32.Vec3) *Object {
	o.transform.SetPosition(position)
	return o
}

// AddComponent appends a component to the bundle. Only effective before the
// object joins a scene.
func (o *Object) AddComponent(component any) *Object {
	o.components = append(o.components, component)
	return o
}

func (o *Object) AddedToSceneTree(id TransformId) { o.transformId = id }

func (o *Object) AddedToScene(scene *Scene, id ObjectId) {
	o.scene = scene
	o.id = id
}

func (o *Object) RemovedFromScene() {
	o.scene = nil
	o.id = ""
	o.transformId = RootTransformId
	o.transform = NewTransform()
}

// Apply pushes the object's local transform into its scene slot. A no-op
// error before the object joined a scene. Note that an object sharing its
// parent's slot writes to that shared slot, and one riding the read-only
// root slot gets ErrInvariantViolation; give the object its own slot (a
// non-identity transform at Add time) if that is not intended.
func (o *Object) Apply() error {
	if o.scene == nil {
		return ErrFieldNotFound
	}
	return o.scene.UpdateTransform(o.transformId, o.transform)
}
