package interfaces

// SchedulerInterface drives the background sync jobs over the daemon's
// lifetime: Restore and Init on start, Stop and Persist on shutdown.
type SchedulerInterface interface {
	Restore() error
	Init()
	Stop()
	Persist() error
}
