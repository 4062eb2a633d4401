package types

// Telemetry metric names. All components use these constants.
const (
	MetricVerification    = "SignatureVerification"
	MetricWebhookDispatch = "WebhookDispatch"
	MetricPipelineDefect  = "RequestPipelineDefect"
	MetricAPILatency      = "APILatency"
	MetricAPIRequestCount = "APIRequestCount"

	DimEndpoint  = "Endpoint"
	DimOutcome   = "Outcome"
	DimEventType = "EventType"

	MetricNamespace = "Quill"
)

// Verification outcomes shared by both signature endpoints.
const (
	OutcomeVerified       = "verified"
	OutcomeRejected       = "rejected"
	OutcomeMalformed      = "malformed"
	OutcomePipelineDefect = "pipeline_defect"
)

// Dispatch results recorded per webhook event type.
const (
	DispatchHandled   = "handled"
	DispatchUnhandled = "unhandled"
	DispatchFailed    = "failed"
)
