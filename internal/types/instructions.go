/*

This file contains the opaque instruction batch a manager submits to a vault's
strategy executor during a manage operation. The coordinator never interprets
the payloads; it only sequences and bounds their effect.

*/

package types

import (
	"encoding/json"
)

// Instruction is a single strategy-specific call. Method names the executor
// entry point; Payload is whatever encoding that executor expects.
type Instruction struct {
	Method  string          `json:"method"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// InstructionBatch is an ordered list of instructions executed atomically as
// a unit: either all apply or the whole manage operation fails.
type InstructionBatch struct {
	GoalDescription string        `json:"goal_description,omitempty"`
	Instructions    []Instruction `json:"instructions"`
}
