package novaplanwire

import (
	"fmt"

	"github.com/tuannm99/novaplan/internal/engine"
)

// PlanRequest asks the server to plan one statement.
type PlanRequest struct {
	ID  uint64 `json:"id"`
	SQL string `json:"sql"`
	// Optimize defaults to true when omitted.
	Optimize *bool `json:"optimize,omitempty"`
}

// PlanResponse answers the request with the same ID.
type PlanResponse struct {
	ID     uint64         `json:"id"`
	Report *engine.Report `json:"report,omitempty"`
	Error  string         `json:"error,omitempty"`
	Kind   string         `json:"kind,omitempty"`
}

// RemoteError is a planning failure reported by the server.
type RemoteError struct {
	Kind    engine.ErrorKind
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Err returns the failure carried by the response, if any.
func (r *PlanResponse) Err() error {
	if r.Error == "" {
		return nil
	}
	return &RemoteError{Kind: engine.ErrorKind(r.Kind), Message: r.Error}
}
