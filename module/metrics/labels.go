package metrics

const (
	LabelMethod  = "method"
	LabelReason  = "reason"
	LabelVersion = "version"
	LabelSource  = "source"
	LabelResult  = "result"
	LabelState   = "state"
	LabelService = "service"
	LabelHandler = "handler"
	LabelCode    = "code"
)

const (
	SourceFlashblocks = "flashblocks"
	SourceEngine      = "engine"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)
