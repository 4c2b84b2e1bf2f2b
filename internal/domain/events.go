package domain

// Event names on the viewer channel.
const (
	EventSnapshot = "snapshot"
	EventMessage  = "message"

	EventCommand      = "command"
	EventChartRequest = "chart_request"
	EventChartData    = "chart_data"

	EventConnectionTest     = "connection_test"
	EventConnectionResponse = "connection_response"
	EventInputDataRequest   = "input_data_request"
	EventInputDataResponse  = "input_data_response"
)

// Broadcaster delivers a named event to every connected viewer.
type Broadcaster interface {
	Broadcast(event string, payload any) error
}
