// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package printer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/caravel-sh/caravel/internal/cli/renderer"
	"github.com/caravel-sh/caravel/internal/stack"
	"github.com/caravel-sh/caravel/internal/workflow"
	"gopkg.in/yaml.v3"
)

type Consumer string

const (
	ConsumerHuman   Consumer = "human"
	ConsumerMachine Consumer = "machine"
)

type MachineReadablePrinter[T any] struct {
	w      io.Writer
	format string
}

func NewMachineReadablePrinter[T any](w io.Writer, format string) *MachineReadablePrinter[T] {
	return &MachineReadablePrinter[T]{
		w:      w,
		format: format,
	}
}

func (p *MachineReadablePrinter[T]) Print(v *T) error {
	var data []byte
	var err error
	switch p.format {
	case "json":
		data, err = json.Marshal(v)
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
	case "yaml":
		intermediate, convertErr := roundTripThroughJSON(v)
		if convertErr != nil {
			return fmt.Errorf("convert for yaml: %w", convertErr)
		}

		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(intermediate); err != nil {
			return fmt.Errorf("yaml encode: %w", err)
		}
		data = buf.Bytes()
	default:
		return fmt.Errorf("unsupported format: %s", p.format)
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	_, err = p.w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// roundTripThroughJSON re-encodes via JSON so the yaml output honors the
// json struct tags instead of the Go field names.
func roundTripThroughJSON(v any) (any, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var result any
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return nil, err
	}

	return result, nil
}

type HumanReadablePrinter[T any] struct {
	w io.Writer
}

func NewHumanReadablePrinter[T any](w io.Writer) *HumanReadablePrinter[T] {
	return &HumanReadablePrinter[T]{
		w: w,
	}
}

func (p *HumanReadablePrinter[T]) Print(v any) error {
	switch v := any(v).(type) {
	case *workflow.Summary:
		output, err := renderer.RenderSummary(v)
		if err != nil {
			return fmt.Errorf("render summary: %w", err)
		}
		_, err = p.w.Write([]byte(output))
		if err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	case *workflow.Snapshot:
		output, err := renderer.RenderSnapshot(v)
		if err != nil {
			return fmt.Errorf("render status: %w", err)
		}
		_, err = p.w.Write([]byte(output))
		if err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	case *[]stack.Event:
		output, err := renderer.RenderEvents(*v)
		if err != nil {
			return fmt.Errorf("render events: %w", err)
		}
		_, err = p.w.Write([]byte(output))
		if err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	default:
		return fmt.Errorf("unsupported type: %T", v)
	}

	return nil
}
