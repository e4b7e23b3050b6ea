// Package replay posts recorded telemetry back into a running service.
//
// Input is JSON lines. A line with "type":"mapping" declares a vehicle/meter pair; any other
// object is sent to the ingest endpoint unchanged. Blank lines and lines starting with # are
// skipped.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

const (
	ingestPath  = "/v1/ingestion"
	mappingPath = "/v1/ingestion/mapping"

	maxLineBytes = 1 << 20
)

// Poster is the subset of the HTTP client the replayer needs.
type Poster interface {
	PostJSON(ctx context.Context, path string, payload, out interface{}) error
}

// LineError records one rejected input line.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Summary counts what a replay did.
type Summary struct {
	Readings int
	Mappings int
	Skipped  int
	Failures []LineError
}

// Failed reports whether any line was rejected.
func (s Summary) Failed() bool {
	return len(s.Failures) > 0
}

// Replayer streams lines to the service in input order.
type Replayer struct {
	client Poster
	logger *zap.Logger
}

// New returns replayer.
func New(client Poster, logger *zap.Logger) *Replayer {
	return &Replayer{client: client, logger: logger}
}

// Run reads r to EOF. Per-line failures are collected; only read errors and ctx
// cancellation abort the run.
func (r *Replayer) Run(ctx context.Context, in io.Reader) (Summary, error) {
	var sum Summary
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			sum.Skipped++
			continue
		}

		isMapping, err := r.post(ctx, []byte(text))
		if err != nil {
			r.logger.Warn("replay line rejected", zap.Int("line", line), zap.Error(err))
			sum.Failures = append(sum.Failures, LineError{Line: line, Err: err})
			continue
		}
		if isMapping {
			sum.Mappings++
		} else {
			sum.Readings++
		}
	}
	if err := scanner.Err(); err != nil {
		return sum, fmt.Errorf("read input: %w", err)
	}
	return sum, nil
}

func (r *Replayer) post(ctx context.Context, data []byte) (bool, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var record map[string]interface{}
	if err := dec.Decode(&record); err != nil || record == nil {
		return false, errors.New("not a json object")
	}

	kind, _ := record["type"].(string)
	delete(record, "type")
	if kind == "mapping" {
		return true, r.client.PostJSON(ctx, mappingPath, record, nil)
	}
	return false, r.client.PostJSON(ctx, ingestPath, record, nil)
}
