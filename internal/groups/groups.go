// Package groups holds the static allow-list of WhatsApp group IDs whose
// messages are eligible for processing.
package groups

// AllowList is an immutable membership set of group chat IDs. It is built once
// at startup from configuration and never mutated afterwards, so lookups need
// no synchronization.
type AllowList struct {
	ids map[string]struct{}
}

// NewAllowList builds an allow-list from the given group chat IDs.
func NewAllowList(ids []string) *AllowList {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return &AllowList{ids: set}
}

// Allowed reports whether chatID is literally present in the allow-list.
func (a *AllowList) Allowed(chatID string) bool {
	_, ok := a.ids[chatID]
	return ok
}

// Len returns the number of allowed groups.
func (a *AllowList) Len() int {
	return len(a.ids)
}
