package registry

// Service is a long-running agent component started and stopped by the service registry.
type Service interface {
	Start() error
	Stop() error
}
