// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package printer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"

	"github.com/caravel-sh/caravel/internal/fleet"
	"github.com/caravel-sh/caravel/internal/workflow"
)

type Person struct {
	Name      string    `json:"name" yaml:"name"`
	Age       int       `json:"age" yaml:"age"`
	Addresses []Address `json:"addresses" yaml:"addresses"`
}

type Address struct {
	Street string `json:"street" yaml:"street"`
	City   string `json:"city" yaml:"city"`
	State  string `json:"state" yaml:"state"`
	Zip    string `json:"zip" yaml:"zip"`
}

func TestMachineReadablePrinter(t *testing.T) {
	testObject := Person{
		Name: "John Doe",
		Age:  30,
		Addresses: []Address{
			{
				Street: "123 Main St",
				City:   "Anytown",
				State:  "CA",
				Zip:    "12345",
			},
		},
	}

	t.Run("prints json objects", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		printer := NewMachineReadablePrinter[Person](buf, "json")
		err := printer.Print(&testObject)
		assert.NoError(t, err)
		expected := `{"name":"John Doe","age":30,"addresses":[{"street":"123 Main St","city":"Anytown","state":"CA","zip":"12345"}]}` + "\n"
		assert.Equal(t, expected, buf.String())
	})

	t.Run("prints yaml", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		printer := NewMachineReadablePrinter[Person](buf, "yaml")
		err := printer.Print(&testObject)
		assert.NoError(t, err)

		// Verify it's valid YAML by unmarshaling it back
		var result Person
		err = yaml.Unmarshal(buf.Bytes(), &result)
		assert.NoError(t, err)
		assert.Equal(t, testObject, result)

		// Also verify it ends with a newline
		assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		printer := NewMachineReadablePrinter[Person](bytes.NewBuffer(nil), "toml")
		err := printer.Print(&testObject)
		assert.ErrorContains(t, err, "unsupported format")
	})
}

func TestHumanReadablePrinter(t *testing.T) {
	t.Run("renders a status snapshot", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		printer := NewHumanReadablePrinter[workflow.Snapshot](buf)
		err := printer.Print(&workflow.Snapshot{
			Target:      "demo-stack",
			Region:      "us-east-1",
			StackStatus: "CREATE_COMPLETE",
			Fleet:       fleet.State{Desired: 2, Running: 2},
			FleetRef:    fleet.Ref{Cluster: "demo-stack", Service: "demo-stack"},
		})
		assert.NoError(t, err)
		assert.Contains(t, buf.String(), "demo-stack")
	})

	t.Run("rejects unsupported types", func(t *testing.T) {
		printer := NewHumanReadablePrinter[Person](bytes.NewBuffer(nil))
		err := printer.Print(&Person{})
		assert.ErrorContains(t, err, "unsupported type")
	})
}
