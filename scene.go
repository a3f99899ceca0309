package stratum

import (
	"fmt"
	"sync"
)

// TargetId names a render target. The scene stores target assignments for
// the render collaborator but attaches no meaning to them.
type TargetId string

// Scene is the object registry plus the scene tree: it decides whether an
// inserted object gets its own transform slot or shares its parent's, and
// associates a component bundle with a freshly minted ObjectId.
//
// A single read/write lock guards the whole scene: many concurrent readers
// or one exclusive writer. Write entry points never block on the lock; they
// return ErrLockContended and leave retry policy to the caller.
type Scene struct {
	mu  sync.RWMutex
	log Logger

	tree    *SceneTree
	objects *Registry
	targets map[ObjectId][]TargetId
}

func NewScene() *Scene {
	return &Scene{
		log:     NewNopLogger(),
		tree:    NewSceneTree(),
		objects: NewRegistry(),
		targets: make(map[ObjectId][]TargetId),
	}
}

// SetLogger replaces the scene logger. A nil logger silences it.
func (s *Scene) SetLogger(log Logger) {
	if log == nil {
		log = NewNopLogger()
	}
	s.log = log
}

// Add inserts an object into the scene and returns its id.
//
// Re-adding an object that already carries an id is a warning-logged no-op
// returning the existing id. Otherwise the object's spatial data joins the
// scene tree first: a moved object (non-identity local transform) gets a
// fresh slot under its declared parent, an unmoved one shares the parent's
// slot. Then the component bundle is stored under a minted id and the
// object is told both ids.
func (s *Scene) Add(obj SceneObject) (ObjectId, error) {
	if id := obj.Id(); id != "" {
		s.log.Warnf("scene: object %s is already part of a scene", id)
		return id, nil
	}

	if !s.mu.TryLock() {
		return "", fmt.Errorf("scene add: %w", ErrLockContended)
	}
	defer s.mu.Unlock()

	transformId, err := s.addToSceneTree(obj)
	if err != nil {
		return "", err
	}
	obj.AddedToSceneTree(transformId)

	id, err := s.objects.Insert(obj.Components()...)
	if err != nil {
		return "", err
	}
	obj.AddedToScene(s, id)

	return id, nil
}

// addToSceneTree appends the object's transform if it has moved relative
// to its parent; otherwise the object shares the parent's slot.
func (s *Scene) addToSceneTree(obj SceneObject) (TransformId, error) {
	if obj.HasMoved() {
		return s.tree.Append(obj.Transform())
	}
	t := obj.Transform()
	return t.Parent(), nil
}

// Remove drops the object's component bundle and target assignments. Its
// transform slot stays behind as a tombstone; slot indices of surviving
// objects never shift.
func (s *Scene) Remove(id ObjectId) error {
	if !s.mu.TryLock() {
		return fmt.Errorf("scene remove: %w", ErrLockContended)
	}
	defer s.mu.Unlock()

	s.objects.Remove(id)
	delete(s.targets, id)
	return nil
}

// RemoveObject removes the object and clears its scene binding.
func (s *Scene) RemoveObject(obj SceneObject) error {
	if obj.Id() == "" {
		return nil
	}
	if err := s.Remove(obj.Id()); err != nil {
		return err
	}
	obj.RemovedFromScene()
	return nil
}

// Count returns the number of live objects.
func (s *Scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects.Len()
}

// Contains reports whether the object id is alive.
func (s *Scene) Contains(id ObjectId) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects.Contains(id)
}

// Components returns the object's component bundle.
func (s *Scene) Components(id ObjectId) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects.Components(id)
}

// TransformCount returns the scene-tree slot count, root included.
func (s *Scene) TransformCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// TransformAt reads one transform slot.
func (s *Scene) TransformAt(id TransformId) (Transform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := s.tree.At(id)
	if t == nil {
		return Transform{}, fmt.Errorf("scene transform %d: %w", id, ErrFieldNotFound)
	}
	return *t, nil
}

// AppendTransform adds a bare transform slot, e.g. a shared pivot several
// objects parent to later.
func (s *Scene) AppendTransform(t Transform) (TransformId, error) {
	if !s.mu.TryLock() {
		return RootTransformId, fmt.Errorf("scene append transform: %w", ErrLockContended)
	}
	defer s.mu.Unlock()
	return s.tree.Append(t)
}

// UpdateTransform overwrites a transform slot.
func (s *Scene) UpdateTransform(id TransformId, t Transform) error {
	if !s.mu.TryLock() {
		return fmt.Errorf("scene update transform: %w", ErrLockContended)
	}
	defer s.mu.Unlock()
	return s.tree.Update(id, t)
}

// GlobalTransforms composes the whole tree and returns the dense global
// transform array, indexable by transform slot.
func (s *Scene) GlobalTransforms() (GlobalTransforms, error) {
	if !s.mu.TryRLock() {
		return GlobalTransforms{}, fmt.Errorf("scene global transforms: %w", ErrLockContended)
	}
	defer s.mu.RUnlock()
	return s.tree.GlobalTransforms(), nil
}

// AssignTarget records a render-target assignment for the object. The data
// is stored for the render collaborator, nothing in the core consumes it.
func (s *Scene) AssignTarget(id ObjectId, target TargetId) error {
	if !s.mu.TryLock() {
		return fmt.Errorf("scene assign target: %w", ErrLockContended)
	}
	defer s.mu.Unlock()

	if !s.objects.Contains(id) {
		return fmt.Errorf("scene assign target: object %s: %w", id, ErrFieldNotFound)
	}
	s.targets[id] = append(s.targets[id], target)
	return nil
}

// Targets returns the render-target assignments of an object.
func (s *Scene) Targets(id ObjectId) []TargetId {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TargetId, len(s.targets[id]))
	copy(out, s.targets[id])
	return out
}

// GetComponent returns a copy of one component of an object.
func GetComponent[T any](s *Scene, id ObjectId) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ptr, err := Component[T](s.objects, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return *ptr, nil
}

// UpdateComponent overwrites one component of an object in place.
func UpdateComponent[T any](s *Scene, id ObjectId, value T) error {
	if !s.mu.TryLock() {
		return fmt.Errorf("scene update component: %w", ErrLockContended)
	}
	defer s.mu.Unlock()

	ptr, err := Component[T](s.objects, id)
	if err != nil {
		return err
	}
	*ptr = value
	return nil
}

// EachComponent calls fn with a copy of every live object's component of
// type T. Returning false stops the iteration.
func EachComponent[T any](s *Scene, fn func(ObjectId, T) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	Each(s.objects, func(id ObjectId, ptr *T) bool {
		return fn(id, *ptr)
	})
}
