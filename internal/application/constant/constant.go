package constant

// Log field keys.
const (
	Error     = "error"
	Method    = "method"
	Path      = "path"
	Status    = "status"
	Latency   = "latency_ms"
	RoomID    = "room_id"
	URL       = "url"
	RequestID = "request_id"
	Reason    = "reason"
	EventType = "event_type"
	Component = "component"
)
