package event_bus

const (
	MaterialUploadedType  EventType = "material.uploaded"
	LecturesRefreshedType EventType = "lecture.refreshed"
)

// MaterialUploaded is published after the API accepted an upload.
type MaterialUploaded struct {
	// Scope is the cache principal of the uploader.
	Scope  string
	Titles []string
}

// LecturesRefreshed is published when a user asks for fresh lecture data.
type LecturesRefreshed struct {
	Scope string
	// Months are the refreshed listings, formatted YYYY-MM.
	Months []string
}
