package fhir

// OperationOutcome severity levels.
const (
	IssueSeverityFatal       = "fatal"
	IssueSeverityError       = "error"
	IssueSeverityWarning     = "warning"
	IssueSeverityInformation = "information"
)

// OperationOutcome issue type codes used by the exchange.
const (
	IssueTypeInvalid    = "invalid"
	IssueTypeRequired   = "required"
	IssueTypeValue      = "value"
	IssueTypeNotFound   = "not-found"
	IssueTypeSecurity   = "security"
	IssueTypeForbidden  = "forbidden"
	IssueTypeProcessing = "processing"
	IssueTypeException  = "exception"
)

// OperationOutcome is the FHIR error envelope.
type OperationOutcome struct {
	ResourceType string         `json:"resourceType"`
	Issue        []OutcomeIssue `json:"issue"`
}

// OutcomeIssue is a single issue within an OperationOutcome.
type OutcomeIssue struct {
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

// ErrorOutcome builds a single-issue error OperationOutcome.
func ErrorOutcome(code, diagnostics string) OperationOutcome {
	return OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []OutcomeIssue{
			{Severity: IssueSeverityError, Code: code, Diagnostics: diagnostics},
		},
	}
}
