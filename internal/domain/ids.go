package domain

import "fmt"

// TemplateID identifies a template independent of version.
type TemplateID string

// WorkerID is the (template_id, name) pair that identifies a worker.
type WorkerID struct {
	TemplateID TemplateID `json:"template_id"`
	Name       string     `json:"name"`
}

func (w WorkerID) String() string {
	return fmt.Sprintf("%s/%s", w.TemplateID, w.Name)
}

// AccountID scopes templates and workers to a tenant. Isolation here is
// coarse: it partitions visibility, it does not sandbox execution.
type AccountID string
