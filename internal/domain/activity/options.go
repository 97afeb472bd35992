package activity

// ListOptions filters and pages the activity log. Entries come newest first.
type ListOptions struct {
	Type   *Type
	Limit  int
	Offset int
}
