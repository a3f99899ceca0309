package stratum

import "fmt"

// SceneTree is the flat, insertion-ordered transform arena. Slot 0 is the
// root: identity, parented to itself. A transform's parent slot index is
// always less than its own index, which Append enforces; that ordering is
// what lets GlobalTransforms run as a single forward pass with no sorting.
//
// Slots are never reclaimed. Removing an object leaves its transform slot
// in place (a tombstone), so long-running scenes with heavy add/remove
// churn grow the arena unboundedly; this is the documented trade-off for
// stable TransformIds.
type SceneTree struct {
	transforms []Transform
}

func NewSceneTree() *SceneTree {
	return &SceneTree{transforms: []Transform{NewTransform()}}
}

// Len returns the slot count, root included.
func (st *SceneTree) Len() int { return len(st.transforms) }

// Append adds a transform and returns its slot id. The declared parent must
// already exist, i.e. precede the new slot; otherwise the forward
// composition pass would read an uncomputed parent, so the insertion is
// rejected with ErrInvariantViolation.
func (st *SceneTree) Append(t Transform) (TransformId, error) {
	index := len(st.transforms)
	if int(t.Parent()) >= index {
		return RootTransformId, fmt.Errorf(
			"scene tree: parent slot %d not before new slot %d: %w",
			t.Parent(), index, ErrInvariantViolation)
	}
	st.transforms = append(st.transforms, t)
	return TransformId(index), nil
}

// At returns a pointer to the transform in the given slot, or nil when the
// slot does not exist.
func (st *SceneTree) At(id TransformId) *Transform {
	if int(id) >= len(st.transforms) {
		return nil
	}
	return &st.transforms[id]
}

// Update overwrites a slot's transform. Reparenting must still respect the
// parent-before-child ordering. The root slot stays identity forever: slots
// parented to it take their local transform as global, so a mutated root
// would be silently ignored.
func (st *SceneTree) Update(id TransformId, t Transform) error {
	if int(id) >= len(st.transforms) {
		return fmt.Errorf("scene tree: slot %d out of range: %w", id, ErrFieldNotFound)
	}
	if id == RootTransformId {
		return fmt.Errorf("scene tree: root slot is read-only: %w", ErrInvariantViolation)
	}
	if t.Parent() >= id {
		return fmt.Errorf(
			"scene tree: parent slot %d not before slot %d: %w",
			t.Parent(), id, ErrInvariantViolation)
	}
	st.transforms[id] = t
	return nil
}

// GlobalTransforms composes every slot with its ancestors in one forward
// pass. Because parents always precede children, globals[parent] is final
// by the time any child is visited. The result is a dense array indexable
// by the same slot ids, ready for direct upload.
func (st *SceneTree) GlobalTransforms() GlobalTransforms {
	globals := make([]LocalTransform, 0, len(st.transforms))
	uploads := make([]GPUTransform, 0, len(st.transforms))

	for i, t := range st.transforms {
		var global LocalTransform
		if i == 0 || t.Parent() == RootTransformId {
			global = t.Local()
		} else {
			global = globals[t.Parent()].Combine(t.Local())
		}
		globals = append(globals, global)
		uploads = append(uploads, newGPUTransform(global))
	}

	return GlobalTransforms{Transforms: uploads}
}

// GlobalTransforms is the per-frame output contract to the render
// collaborator: one upload-ready global transform per slot.
type GlobalTransforms struct {
	Transforms []GPUTransform
}

// At returns the global transform of a slot.
func (g GlobalTransforms) At(id TransformId) GPUTransform {
	return g.Transforms[id]
}
