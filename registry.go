package stratum

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// ObjectId identifies an object in a scene. Ids are minted on insertion and
// never reused while the object is alive; removal invalidates the id.
type ObjectId string

type archetypeId uint64
type archetypeKey []componentId
type componentId uint32
type row int
type set[T comparable] = map[T]struct{}

// Registry is the component store behind a scene: arbitrary per-object
// bundles of typed components kept in archetype columns. Objects with the
// same component set share an archetype; each component type gets one
// typed slice per archetype, accessed through reflection.
type Registry struct {
	archetypes  map[archetypeId]*archetype
	objectIndex map[ObjectId]archetypeId

	componentIdCounterLock sync.Mutex
	componentIdCounter     componentId
	componentTypeIdMap     map[reflect.Type]componentId
	componentIdTypeMap     map[componentId]reflect.Type
}

func NewRegistry() *Registry {
	return &Registry{
		archetypes:         make(map[archetypeId]*archetype),
		objectIndex:        make(map[ObjectId]archetypeId),
		componentIdCounter: componentId(0),
		componentTypeIdMap: make(map[reflect.Type]componentId),
		componentIdTypeMap: make(map[componentId]reflect.Type),
	}
}

type archetype struct {
	id            archetypeId
	key           archetypeKey
	objects       map[ObjectId]row
	componentData map[componentId]any // typed slices via reflection
	recycled      []row
}

// Insert mints a fresh ObjectId and stores the component bundle under it.
// Components must be structs or pointers to structs; anything else is
// rejected with ErrSchemaMismatch before any state changes.
func (r *Registry) Insert(components ...any) (ObjectId, error) {
	for _, component := range components {
		if component == nil || componentType(component).Kind() != reflect.Struct {
			return "", fmt.Errorf("component %T is not a struct: %w", component, ErrSchemaMismatch)
		}
	}

	id := ObjectId(uuid.NewString())
	archId, _, arch := r.archetypeFromComponents(components...)

	row := r.archetypeReserveRow(arch)
	arch.objects[id] = row
	for _, component := range components {
		r.writeComponent(arch, row, component)
	}

	r.objectIndex[id] = archId
	return id, nil
}

// Remove drops the object's component bundle. The id is invalid afterwards.
// Transform slots referenced by the bundle are not reclaimed.
func (r *Registry) Remove(id ObjectId) {
	archId, ok := r.objectIndex[id]
	if !ok {
		return
	}
	arch := r.archetypes[archId]

	row := arch.objects[id]
	arch.recycled = append(arch.recycled, row)

	delete(arch.objects, id)
	delete(r.objectIndex, id)
}

// Contains reports whether the object is alive.
func (r *Registry) Contains(id ObjectId) bool {
	_, ok := r.objectIndex[id]
	return ok
}

// Len returns the number of live objects.
func (r *Registry) Len() int {
	return len(r.objectIndex)
}

// Components returns the object's full bundle as values, or nil for a dead
// or unknown id.
func (r *Registry) Components(id ObjectId) []any {
	archId, ok := r.objectIndex[id]
	if !ok {
		return nil
	}
	arch := r.archetypes[archId]
	row := arch.objects[id]

	var res []any
	for _, compId := range arch.key {
		val := reflectSliceGet(arch.componentData[compId], int(row))
		res = append(res, val.Interface())
	}
	return res
}

// Component looks up one component of the object by type, returning a
// pointer into the column so mutations stick. Unknown ids or absent
// components yield ErrFieldNotFound.
func Component[T any](r *Registry, id ObjectId) (*T, error) {
	archId, ok := r.objectIndex[id]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", id, ErrFieldNotFound)
	}
	arch := r.archetypes[archId]

	compId, ok := r.componentTypeIdMap[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return nil, fmt.Errorf("component %T of object %s: %w", *new(T), id, ErrFieldNotFound)
	}
	data, ok := arch.componentData[compId]
	if !ok {
		return nil, fmt.Errorf("component %T of object %s: %w", *new(T), id, ErrFieldNotFound)
	}

	column := data.([]T)
	return &column[arch.objects[id]], nil
}

// Each iterates all live objects carrying component type T, in unspecified
// order. Returning false from the callback stops the iteration.
func Each[T any](r *Registry, fn func(ObjectId, *T) bool) {
	compId, ok := r.componentTypeIdMap[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return
	}
	for _, arch := range r.archetypes {
		data, ok := arch.componentData[compId]
		if !ok {
			continue
		}
		column := data.([]T)
		for id, row := range arch.objects {
			if !fn(id, &column[row]) {
				return
			}
		}
	}
}

// writeComponent stores one component value in its column. Insert already
// validated the component kinds, so only structs and pointers to structs
// arrive here.
func (r *Registry) writeComponent(dstArch *archetype, dstRow row, component any) {
	value := reflect.ValueOf(component)
	if value.Kind() == reflect.Pointer {
		value = value.Elem()
	}

	compId := r.getComponentId(value.Type())
	reflectSliceSet(dstArch.componentData[compId], int(dstRow), value)
}

func (r *Registry) archetypeFromComponents(components ...any) (archetypeId, archetypeKey, *archetype) {
	key := r.getArchetypeKey(components...)
	id, arch := r.getOrMakeArchetype(key)
	return id, key, arch
}

func (r *Registry) getOrMakeArchetype(key archetypeKey) (archetypeId, *archetype) {
	id := getArchetypeId(key)

	if arch, ok := r.archetypes[id]; ok {
		return id, arch
	}

	arch := &archetype{
		id:            id,
		key:           key,
		objects:       make(map[ObjectId]row),
		componentData: make(map[componentId]any),
		recycled:      make([]row, 0),
	}
	for _, compId := range arch.key {
		arch.componentData[compId] = reflectSliceMake(
			r.componentIdTypeMap[compId],
		)
	}

	r.archetypes[id] = arch
	return id, arch
}

func (r *Registry) archetypeReserveRow(arch *archetype) row {
	if len(arch.recycled) > 0 {
		row := arch.recycled[len(arch.recycled)-1]
		arch.recycled = arch.recycled[:len(arch.recycled)-1]
		return row
	}

	row := row(len(arch.objects))
	for _, compId := range arch.key {
		arch.componentData[compId] = reflectSliceAppend(
			arch.componentData[compId],
			reflect.Zero(r.componentIdTypeMap[compId]),
		)
	}
	return row
}

// The archetype key is the sorted list of component ids making up the
// archetype; the archetype id is an fnv64a hash of the key, faster to look
// up but prone to collisions the key itself resolves.
func (r *Registry) getArchetypeKey(components ...any) archetypeKey {
	var res archetypeKey
	for _, component := range components {
		res = append(res, r.getComponentId(componentType(component)))
	}
	return dedupAndSortArchetypeKey(res)
}

func dedupAndSortArchetypeKey(key archetypeKey) archetypeKey {
	dedup := make(set[componentId])
	for _, v := range key {
		dedup[v] = struct{}{}
	}

	res := make(archetypeKey, 0, len(dedup))
	for k := range dedup {
		res = append(res, k)
	}

	slices.Sort(res)
	return res
}

func getArchetypeId(key archetypeKey) archetypeId {
	hash := fnv.New64a()
	for _, compId := range key {
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(compId))
		hash.Write(b)
	}
	return archetypeId(hash.Sum64())
}

func (r *Registry) getComponentId(t reflect.Type) componentId {
	r.componentIdCounterLock.Lock()
	defer r.componentIdCounterLock.Unlock()

	if id, ok := r.componentTypeIdMap[t]; ok {
		return id
	}
	id := r.componentIdCounter
	r.componentIdCounter += 1

	r.componentTypeIdMap[t] = id
	r.componentIdTypeMap[id] = t

	return id
}
