package catalog

import (
	"sort"
	"strings"
)

// Step is one named unit of work within a workflow. Priority is advisory and
// affects only ordering in logs and summaries, never correctness.
type Step struct {
	Name     string
	Priority int
}

// Catalog maps workflow types to their ordered step sequences.
type Catalog struct {
	workflows map[string][]Step
}

// New builds a catalog from the supplied workflow definitions. Step names are
// trimmed; empty steps are dropped.
func New(workflows map[string][]Step) *Catalog {
	cleaned := make(map[string][]Step, len(workflows))
	for workflowType, steps := range workflows {
		workflowType = strings.TrimSpace(workflowType)
		if workflowType == "" {
			continue
		}
		kept := make([]Step, 0, len(steps))
		for _, step := range steps {
			name := strings.TrimSpace(step.Name)
			if name == "" {
				continue
			}
			kept = append(kept, Step{Name: name, Priority: step.Priority})
		}
		cleaned[workflowType] = kept
	}
	return &Catalog{workflows: cleaned}
}

// Default returns the catalog of listing workflows shipped with loom.
func Default() *Catalog {
	return New(map[string][]Step{
		"POD Shirt": {
			{Name: "Download Image"},
			{Name: "Upscale Image"},
			{Name: "Add Mockups"},
			{Name: "Generate Mockup JSON"},
			{Name: "Upload Images"},
			{Name: "Create JSON"},
		},
		"Coloring Book": {
			{Name: "Download Image"},
			{Name: "Create PDF"},
			{Name: "Upload Files"},
			{Name: "Create JSON"},
		},
		"SVG Design": {
			{Name: "Download Image"},
			{Name: "Upload Files"},
			{Name: "Create JSON"},
		},
	})
}

// WorkflowTypes returns the known workflow types in sorted order.
func (c *Catalog) WorkflowTypes() []string {
	types := make([]string, 0, len(c.workflows))
	for workflowType := range c.workflows {
		types = append(types, workflowType)
	}
	sort.Strings(types)
	return types
}

// Known reports whether the workflow type exists in the catalog.
func (c *Catalog) Known(workflowType string) bool {
	_, ok := c.workflows[strings.TrimSpace(workflowType)]
	return ok
}

// StepsFor returns the ordered step names for a workflow type. The slice is
// empty for unknown types; callers must treat that as a diagnosable condition.
func (c *Catalog) StepsFor(workflowType string) []string {
	steps := c.workflows[strings.TrimSpace(workflowType)]
	names := make([]string, 0, len(steps))
	for _, step := range steps {
		names = append(names, step.Name)
	}
	return names
}

// Steps returns the full step records for a workflow type.
func (c *Catalog) Steps(workflowType string) []Step {
	steps := c.workflows[strings.TrimSpace(workflowType)]
	cp := make([]Step, len(steps))
	copy(cp, steps)
	return cp
}

// HasStep reports whether the named step belongs to the workflow's sequence.
func (c *Catalog) HasStep(workflowType, step string) bool {
	step = strings.TrimSpace(step)
	for _, name := range c.StepsFor(workflowType) {
		if name == step {
			return true
		}
	}
	return false
}

// FirstStep returns the first step of a workflow, or false for unknown or
// empty workflows.
func (c *Catalog) FirstStep(workflowType string) (string, bool) {
	steps := c.StepsFor(workflowType)
	if len(steps) == 0 {
		return "", false
	}
	return steps[0], true
}

// NextStep returns the step immediately following current within the
// workflow's sequence. It returns false when current is the last step or is
// absent from the sequence; distinguishing those cases is left to callers
// that validate against HasStep.
func (c *Catalog) NextStep(workflowType, current string) (string, bool) {
	current = strings.TrimSpace(current)
	steps := c.StepsFor(workflowType)
	for i, name := range steps {
		if name != current {
			continue
		}
		if i+1 >= len(steps) {
			return "", false
		}
		return steps[i+1], true
	}
	return "", false
}

// AllSteps returns the deduplicated union of step names across every
// workflow, sorted for deterministic iteration.
func (c *Catalog) AllSteps() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, steps := range c.workflows {
		for _, step := range steps {
			if _, ok := seen[step.Name]; ok {
				continue
			}
			seen[step.Name] = struct{}{}
			names = append(names, step.Name)
		}
	}
	sort.Strings(names)
	return names
}
