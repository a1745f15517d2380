// Package assetdata implements AssetDataController: the in-memory registry
// of AssetTypeInfo records, their prototype/instance lifetime, reference
// counting, and load-state transitions described in spec §4.4.
//
// Grounded on original_source/Code/Runtime/Asset/Controllers/AssetDataController.h
// (DynamicTable/DynamicIDTable/DynamicAliasTable, CreateType/Find/
// CreatePrototype/UnloadPrototype/CreateInstance/UpdateInstances/SetOp/
// SetLoadState/GenerateUID/GetProcessor surface).
//
// © 2025 arena-cache authors. MIT License.
package assetdata

import "fmt"

// LoadState is the lifecycle stage of an AssetTypeInfo, per spec §4.4's
// state diagram.
type LoadState int32

const (
	Unloaded LoadState = iota
	Loading
	Loaded
	Unloading
	Corrupted
	Deleted
)

func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "UNLOADED"
	case Loading:
		return "LOADING"
	case Loaded:
		return "LOADED"
	case Unloading:
		return "UNLOADING"
	case Corrupted:
		return "CORRUPTED"
	case Deleted:
		return "DELETED"
	default:
		return fmt.Sprintf("LoadState(%d)", int32(s))
	}
}

// validTransition enforces the state diagram in spec §4.4: UNLOADED ->
// LOADING -> {LOADED, CORRUPTED}; LOADED -> UNLOADING -> UNLOADED; any
// state -> DELETED. CORRUPTED and DELETED are terminal (DELETED only
// until an explicit undo-delete, which this package exposes as
// SetLoadState(Unloaded) from Deleted, since opState separately tracks
// AOS_UNDO_DELETE).
func validTransition(from, to LoadState) bool {
	if to == Deleted {
		return true
	}
	switch from {
	case Unloaded:
		return to == Loading
	case Loading:
		return to == Loaded || to == Corrupted
	case Loaded:
		return to == Unloading
	case Unloading:
		return to == Unloaded
	case Corrupted:
		return false
	case Deleted:
		return to == Unloaded // explicit undo-delete
	default:
		return false
	}
}

// OpState is the single-slot in-flight operation guard described in spec
// §4.4 ("opState slot"). SetOp succeeds only as a compare-and-swap from
// Idle, resolving spec §9's open question about the source's
// double-locked producer/consumer transition: one CAS, not two.
type OpState int32

const (
	OpIdle OpState = iota
	OpLoading
	OpUnloading
	OpDownloading
	OpCaching
	OpCreating
	OpDeleted
	OpUndoDelete
)

func (s OpState) String() string {
	switch s {
	case OpIdle:
		return "AOS_IDLE"
	case OpLoading:
		return "AOS_LOADING"
	case OpUnloading:
		return "AOS_UNLOADING"
	case OpDownloading:
		return "AOS_DOWNLOADING"
	case OpCaching:
		return "AOS_CACHING"
	case OpCreating:
		return "AOS_CREATING"
	case OpDeleted:
		return "AOS_DELETED"
	case OpUndoDelete:
		return "AOS_UNDO_DELETE"
	default:
		return fmt.Sprintf("OpState(%d)", int32(s))
	}
}
