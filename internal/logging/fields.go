package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldInstanceID identifies the running board instance.
	FieldInstanceID = "instance_id"
	// FieldStation is the operator recorded on writes from this instance.
	FieldStation = "station_user"
	// FieldDocument is the path of the shared document involved.
	FieldDocument = "document"
	// FieldCarrier is the carrier name of a manifest.
	FieldCarrier = "carrier"
	// FieldManifestTime is the scheduled HH:MM of a manifest.
	FieldManifestTime = "manifest_time"
	// FieldManifestDate is the YYYY-MM-DD the manifest belongs to.
	FieldManifestDate = "manifest_date"
	// FieldSeverity is the board severity (quiet, missed, active).
	FieldSeverity = "severity"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)
