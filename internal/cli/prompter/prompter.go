// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package prompter

import (
	"fmt"
)

type Prompter interface {
	Confirm(prompt string, defaultValue bool) bool
}

type BasicPrompter struct{}

func NewBasicPrompter() *BasicPrompter {
	return &BasicPrompter{}
}

func (p *BasicPrompter) Confirm(prompt string, defaultValue bool) bool {
	fmt.Printf("%s (Y): ", prompt)
	var response string
	_, err := fmt.Scanln(&response)
	return err == nil && response == "Y"
}
