package metrics

// Prometheus metric namespaces
const (
	namespaceRollupBoost = "rollup_boost"
)

// Prometheus metric subsystems
const (
	subsystemFlashblocks  = "flashblocks"
	subsystemEngineClient = "engine_client"
	subsystemPublisher    = "publisher"
	subsystemInbound      = "inbound"
	subsystemHTTP         = "http"
)
