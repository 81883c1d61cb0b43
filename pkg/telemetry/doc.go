// Package telemetry provides observability instrumentation for the record store.
//
// It integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and record change events into a
// single Telemetry value.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// Loggers are derived per component and carry record fields:
//
//	logger := tel.Logger.NewComponentLogger("stores").WithRecordID(42)
//	logger.Debug("record read")
//
// The minimum level is shared by a logger and all of its children and can be
// changed at runtime with SetLevel.
//
// # Metrics
//
// Store operations are counted by backend, operation, and outcome:
//
//	recordstore_store_operations_total{backend="sqlite",operation="read",outcome="not_found"}
//	recordstore_store_operation_duration_seconds{backend="sqlite",operation="read"}
//	recordstore_store_errors_total{kind="unavailable"}
//	recordstore_records{backend="sqlite"}
//
// # Events
//
// Mutations that affect a row publish record.inserted, record.updated, or
// record.deleted. Engine failures publish store.error.
package telemetry
