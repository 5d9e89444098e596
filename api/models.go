package api

import "github.com/jmcleod/gatehouse/session"

// Response is the JSON envelope of every API reply.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	User    *session.Identity `json:"user,omitempty"`
}
