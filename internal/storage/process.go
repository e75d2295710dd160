package storage

// ProcessTracker resolves OS pids to store-scoped process references. The
// shared-memory pseudo-process (pid 0) is registered at construction so it
// always resolves to the distinguished SharedMemoryUPid rather than
// overloading the real pid space.
type ProcessTracker struct {
	upids map[uint32]UPid
	pids  []uint32
}

// NewProcessTracker creates a tracker with the pseudo-process registered.
func NewProcessTracker() *ProcessTracker {
	return &ProcessTracker{
		upids: map[uint32]UPid{SharedPseudoPid: SharedMemoryUPid},
		pids:  []uint32{SharedPseudoPid},
	}
}

// GetOrCreate resolves a pid, creating a new process reference on first
// sight.
func (t *ProcessTracker) GetOrCreate(pid uint32) UPid {
	if upid, ok := t.upids[pid]; ok {
		return upid
	}
	upid := UPid(len(t.pids))
	t.upids[pid] = upid
	t.pids = append(t.pids, pid)
	return upid
}

// Pid returns the OS pid a reference was created for.
func (t *ProcessTracker) Pid(upid UPid) uint32 {
	return t.pids[upid]
}
