package classifier

// Result is the outcome of one verification call.
type Result struct {
	IsSuccess           bool   `json:"is_success" yaml:"is_success"`
	HasValidationErrors bool   `json:"has_validation_errors" yaml:"has_validation_errors"`
	Details             string `json:"details" yaml:"details"`
}

// Outcome identifies which decision point produced a Result.
type Outcome int

const (
	OutcomeValidationError Outcome = iota
	OutcomeSuccess
	OutcomeAmbiguous
	OutcomeProbeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValidationError:
		return "validation_error"
	case OutcomeSuccess:
		return "success"
	case OutcomeAmbiguous:
		return "ambiguous"
	case OutcomeProbeError:
		return "probe_error"
	default:
		return "unknown"
	}
}

// Decision is handed to observers after classification.
type Decision struct {
	Outcome Outcome
	Step    string
	Result  Result
}
