package models

// Printer is a descriptor reported by the print bridge. Name is the selection key;
// IsThermal is advisory and never blocks printing.
type Printer struct {
	Name      string `json:"name"`
	Driver    string `json:"driver,omitempty"`
	Port      string `json:"port,omitempty"`
	Status    string `json:"status,omitempty"`
	IsDefault bool   `json:"is_default"`
	IsThermal bool   `json:"is_thermal"`
}

type Operator struct {
	OperatorID string `json:"operator_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
}
