package observe_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/tagcache/observe"
)

func ExampleNewObserver() {
	cfg := observe.Config{
		ServiceName: "example-service",
		Version:     "1.0.0",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     observe.MetricsConfig{Enabled: false},
		Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
	}

	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, cfg)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	fmt.Println("Observer created successfully")
	// Output:
	// Observer created successfully
}

func ExampleNewObserver_validation() {
	// Missing service name triggers validation error
	cfg := observe.Config{
		ServiceName: "", // Empty - will fail validation
	}

	ctx := context.Background()
	_, err := observe.NewObserver(ctx, cfg)
	if errors.Is(err, observe.ErrMissingServiceName) {
		fmt.Println("Caught: missing service name")
	}
	// Output:
	// Caught: missing service name
}

func ExampleConfig_Validate() {
	// Valid configuration
	cfg := observe.Config{
		ServiceName: "my-service",
		Version:     "1.0.0",
		Tracing: observe.TracingConfig{
			Enabled:   true,
			Exporter:  "stdout",
			SamplePct: 0.5, // 50% sampling
		},
		Metrics: observe.MetricsConfig{
			Enabled:  true,
			Exporter: "prometheus",
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid:", err)
	} else {
		fmt.Println("Configuration is valid")
	}
	// Output:
	// Configuration is valid
}

func ExampleComputeMeta_SpanName() {
	meta := observe.ComputeMeta{
		Name: "post.load",
	}
	fmt.Println(meta.SpanName())

	meta2 := observe.ComputeMeta{
		Name: "feed.render",
	}
	fmt.Println(meta2.SpanName())
	// Output:
	// cache.compute.post.load
	// cache.compute.feed.render
}

func ExampleComputeMeta_Validate() {
	// Valid metadata
	meta := observe.ComputeMeta{
		Name:    "post.load",
		Profile: "hours",
	}
	if err := meta.Validate(); err != nil {
		fmt.Println("Invalid:", err)
	} else {
		fmt.Println("Valid computation metadata")
	}

	// Invalid - missing name
	meta2 := observe.ComputeMeta{
		Profile: "hours",
	}
	if errors.Is(meta2.Validate(), observe.ErrMissingComputeName) {
		fmt.Println("Caught: missing compute name")
	}
	// Output:
	// Valid computation metadata
	// Caught: missing compute name
}

func ExampleNewLoggerWithWriter() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf)

	ctx := context.Background()
	logger.Info(ctx, "application started", observe.Field{Key: "version", Value: "1.0.0"})

	// Output contains JSON with timestamp, level, msg, and version field
	fmt.Println("Logged message contains 'application started':", bytes.Contains(buf.Bytes(), []byte("application started")))
	// Output:
	// Logged message contains 'application started': true
}

func ExampleLogger_withComponent() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf)

	// Create component-scoped logger
	engineLogger := logger.WithComponent("cache.engine")

	ctx := context.Background()
	engineLogger.Info(ctx, "sweep finished")

	// Output contains component context
	output := buf.String()
	fmt.Println("Contains component:", bytes.Contains([]byte(output), []byte("cache.engine")))
	// Output:
	// Contains component: true
}

func ExampleObserve() {
	ctx := context.Background()

	// Create observer with disabled exporters for example
	cfg := observe.Config{
		ServiceName: "example",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     observe.LoggingConfig{Enabled: false},
	}
	obs, _ := observe.NewObserver(ctx, cfg)
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	// Create middleware
	mw, _ := observe.MiddlewareFromObserver(obs)

	// Define the computation
	loadPost := func(ctx context.Context) (map[string]string, error) {
		return map[string]string{"status": "published"}, nil
	}

	// Wrap with observability
	wrapped := observe.Observe(mw, observe.ComputeMeta{
		Name:    "post.load",
		Profile: "hours",
	}, loadPost)

	// Execute - automatically traced, metered, and logged
	result, err := wrapped(ctx)

	if err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Printf("Result: %v\n", result)
	}
	// Output:
	// Result: map[status:published]
}

func ExampleParseLogLevel() {
	levels := []string{"debug", "info", "warn", "error", "unknown"}
	for _, s := range levels {
		level := observe.ParseLogLevel(s)
		fmt.Printf("%s -> %s\n", s, level)
	}
	// Output:
	// debug -> debug
	// info -> info
	// warn -> warn
	// error -> error
	// unknown -> info
}
