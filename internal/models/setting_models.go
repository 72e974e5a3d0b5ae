package models

// Setting is one key/value row of the settings sheet.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
