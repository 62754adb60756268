package api

import (
	"github.com/solatis/switchboard/internal/rules"
	"github.com/solatis/switchboard/internal/types"
)

// ListSwitchesRequest asks for every stored switch.
type ListSwitchesRequest struct{}

// ListSwitchesResponse carries switches ordered by name.
type ListSwitchesResponse struct {
	Switches []*types.Switch `json:"switches"`
}

// ChoicesRequest asks for the selectable operators and arguments.
type ChoicesRequest struct{}

// ChoicesResponse carries grouped choices plus each operator's parameter names.
type ChoicesResponse struct {
	Operators         []rules.ChoiceGroup `json:"operators"`
	Arguments         []rules.ChoiceGroup `json:"arguments"`
	OperatorArguments map[string][]string `json:"operator_arguments"`
}

// UpdateSwitchRequest is one editor form submission: header fields plus
// form-N-<field> condition rows.
type UpdateSwitchRequest struct {
	Values map[string][]string `json:"values"`
}

// UpdateSwitchResponse reports what the submission did. Errors and Notice
// are set only when the outcome is "invalid".
type UpdateSwitchResponse struct {
	Outcome string              `json:"outcome"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Notice  string              `json:"notice,omitempty"`
}

// DeleteSwitchRequest names the switch to remove.
type DeleteSwitchRequest struct {
	Name string `json:"name"`
}

// DeleteSwitchResponse is empty on success.
type DeleteSwitchResponse struct{}

// ExportSwitchesRequest selects switches to export; empty means all.
type ExportSwitchesRequest struct {
	Names []string `json:"names,omitempty"`
}

// ExportSwitchesResponse carries the armored switch block.
type ExportSwitchesResponse struct {
	SwitchBlock string `json:"switch_block"`
}

// ImportSwitchesRequest carries an armored switch block.
type ImportSwitchesRequest struct {
	SwitchBlock string `json:"switch_block"`
}

// ImportFailure names one switch that did not register.
type ImportFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ImportSwitchesResponse summarizes the import.
type ImportSwitchesResponse struct {
	ImportID   string          `json:"import_id"`
	Registered []string        `json:"registered"`
	Failed     []ImportFailure `json:"failed,omitempty"`
}
