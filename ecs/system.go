package ecs

// System is one step of a tick. Exported Query and Singleton fields are bound
// to the scheduler's storage on Register, and Query fields are refreshed
// right before every Execute.
type System interface {
	Execute(frame *UpdateFrame)
}

// SyncPoint is a system that applies all commands recorded so far in the
// tick. Entities created before it are visible to the systems after it.
type SyncPoint struct{}

func (SyncPoint) Execute(frame *UpdateFrame) {
	frame.Commands.Flush(frame.Storage)
}
