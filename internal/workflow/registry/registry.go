// Package registry holds the immutable catalog of workflow templates, keyed
// by entity type. Templates are registered during startup and the registry is
// then frozen; after that reads touch the map directly with no lock.
package registry

import (
	"sync"
	"sync/atomic"

	"flowgate/internal/workflow/models"
	dErrors "flowgate/pkg/domain-errors"
)

// Registry maps entity types to their workflow templates.
type Registry struct {
	mu        sync.Mutex
	frozen    atomic.Bool
	templates map[string]*models.WorkflowTemplate
}

func New() *Registry {
	return &Registry{templates: make(map[string]*models.WorkflowTemplate)}
}

// Register adds a template to the catalog. Fails with CodeConflict when the
// entity type is already registered, CodeBadRequest when the template is
// invalid, and CodeInternal when the registry is already frozen. All three
// are fatal operator configuration errors.
func (r *Registry) Register(template *models.WorkflowTemplate) error {
	if template == nil {
		return dErrors.New(dErrors.CodeBadRequest, "template is required")
	}
	if err := template.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Checked under mu so a Register racing Freeze cannot slip an insert
	// past the freeze while Get reads lock-free.
	if r.frozen.Load() {
		return dErrors.New(dErrors.CodeInternal, "registry is frozen; templates register at startup only")
	}
	if _, exists := r.templates[template.EntityType]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "entity type %s is already registered", template.EntityType)
	}
	r.templates[template.EntityType] = template
	return nil
}

// Freeze marks the end of startup. Further Register calls fail; Get becomes
// safe for unsynchronized concurrent use.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen.Store(true)
}

// Get resolves the template for an entity type.
func (r *Registry) Get(entityType string) (*models.WorkflowTemplate, error) {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	template, ok := r.templates[entityType]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "unknown entity type %s", entityType)
	}
	return template, nil
}

// EntityTypes lists the registered entity types. Intended for diagnostics.
func (r *Registry) EntityTypes() []string {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	types := make([]string, 0, len(r.templates))
	for t := range r.templates {
		types = append(types, t)
	}
	return types
}
