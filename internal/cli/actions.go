package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tutu-network/multisig/internal/domain"
)

// actionFile is the YAML form of a proposal's action batch:
//
//	actions:
//	  - contract: token
//	    msg:
//	      mint: {recipient: bob, amount: "100"}
type actionFile struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Actions     []struct {
		Contract string         `yaml:"contract"`
		Msg      map[string]any `yaml:"msg"`
	} `yaml:"actions"`
}

// loadActions reads an action file and re-encodes each msg as JSON.
func loadActions(path string) (*actionFile, []domain.Action, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read actions: %w", err)
	}
	return parseActions(data)
}

func parseActions(data []byte) (*actionFile, []domain.Action, error) {
	var f actionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse actions: %w", err)
	}

	actions := make([]domain.Action, 0, len(f.Actions))
	for i, a := range f.Actions {
		if a.Contract == "" {
			return nil, nil, fmt.Errorf("action %d: contract is required", i)
		}
		msg, err := json.Marshal(a.Msg)
		if err != nil {
			return nil, nil, fmt.Errorf("action %d: encode msg: %w", i, err)
		}
		actions = append(actions, domain.Action{Contract: a.Contract, Msg: msg})
	}
	return &f, actions, nil
}
