package observability

// Config captures opt-in observability toggles that wire into the server.
type Config struct {
	// EnablePprof mounts the net/http/pprof handlers.
	EnablePprof bool `env:"PH_ENABLE_PPROF" envDefault:"false"`
	// ServiceName labels the otel tracer provider and structured log fields.
	ServiceName string `env:"PH_SERVICE_NAME" envDefault:"project-hunter"`
}
