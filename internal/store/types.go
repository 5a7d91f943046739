package store

import "github.com/roach88/civil/internal/ir"

// Run statuses.
const (
	StatusRunning = "running"
	StatusDrained = "drained"
	StatusFailed  = "failed"
)

// Run is one simulation run and, once finished, its outcome.
type Run struct {
	ID           string
	RootType     string
	RootTable    string
	InitTerm     string
	RegistryHash string
	Seed         uint64
	StartTime    int64
	MaxSteps     uint64
	MaxEvents    int64

	Status    string
	Events    int64
	Entities  int
	FinalTime int64
	Externs   int64
	ErrorCode string
	Error     string
}

// EventRow is one executed event.
type EventRow struct {
	RunID      string
	Step       int64
	Time       int64
	Seq        int64
	Entity     int64
	EntityType string
	Table      string
	Term       string
	Args       ir.List
}

// ExternRow is one completed foreign call.
type ExternRow struct {
	RunID   string
	Ordinal int64
	Step    int64
	Name    string
	Args    ir.List
	Results ir.List
}
