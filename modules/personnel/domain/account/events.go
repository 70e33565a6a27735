package account

// GroupsChangedEvent is published whenever rank, unit or role assignments of
// an account change, so voice and chat integrations can resync groups.
type GroupsChangedEvent struct {
	AccountID string
	Reason    string
}
