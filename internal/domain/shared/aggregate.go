package shared

// BaseAggregateRoot adds an optimistic-lock version and the events raised
// since the aggregate was loaded. Repositories compare the stored row's
// version with PersistedVersion on save; services publish the events once
// the write commits.
type BaseAggregateRoot struct {
	BaseEntity
	Version   int `json:"version"`
	persisted int
	pending   []DomainEvent
}

// NewBaseAggregateRoot starts a new aggregate at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// RestoreAggregateRoot rebuilds the header of an aggregate read from storage
func RestoreAggregateRoot(e BaseEntity, version int) BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: e, Version: version, persisted: version}
}

// PersistedVersion is the version last read from or written to storage,
// zero for an aggregate that was never saved.
func (a *BaseAggregateRoot) PersistedVersion() int {
	return a.persisted
}

// MarkPersisted records a successful save of the current version
func (a *BaseAggregateRoot) MarkPersisted() {
	a.persisted = a.Version
}

// Changed records a state change: UpdatedAt and Version move forward and
// evt, when not nil, is queued for publication.
func (a *BaseAggregateRoot) Changed(evt DomainEvent) {
	a.Touch()
	a.Version++
	if evt != nil {
		a.pending = append(a.pending, evt)
	}
}

// AddDomainEvent queues evt without counting it as a change, e.g. on creation
func (a *BaseAggregateRoot) AddDomainEvent(evt DomainEvent) {
	a.pending = append(a.pending, evt)
}

// GetDomainEvents returns the queued events in the order they were raised
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops the queue after publication
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}
