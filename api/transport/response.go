package transport

import "encoding/json"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope wraps every JSON response. Code is set on errors and on
// successes that carry a warning.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

// Warning is the meta payload of a partial success.
type Warning struct {
	Warning string `json:"warning"`
}

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{Status: StatusSuccess, Data: data, Meta: meta}
}

// NewPartial reports a completed operation whose side effect is still pending.
func NewPartial(code string, data interface{}, warning string) Envelope {
	return Envelope{Status: StatusSuccess, Code: code, Data: data, Meta: Warning{Warning: warning}}
}

func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{Status: StatusError, Code: code, Error: err, Meta: meta}
}

// String renders the envelope for logs.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}
