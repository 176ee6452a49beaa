// Package internaldefs holds the exported metric names, help strings and
// histogram bounds that the Prometheus and OpenTelemetry exporters share.
//
// Both exporters read an engine snapshot through the same definitions, so a
// counter renamed here is renamed in every backend at once. The package does
// no I/O and imports no exporter.
package internaldefs
