// Package tools implements ToolsManager, ToolController, and
// ToolOrchestrator: the local tool registry, the parser/executor that turns
// a response's tool calls into results, and the multi-turn loop that
// resubmits those results to the model until it answers without further
// tool calls.
package tools

import (
	"sync"

	"goa.design/llmcore/errs"
	"goa.design/llmcore/model"
)

// Manager is ToolsManager: an in-memory, name-keyed registry of local tool
// definitions. MCP-sourced tools live in mcpadapter's own cache, keyed by
// their rewritten names; ToolController looks a name up here first and in
// that cache second.
type Manager struct {
	mu    sync.RWMutex
	tools map[string]model.ToolDefinition
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{tools: make(map[string]model.ToolDefinition)}
}

// Add registers a tool, replacing any existing entry with the same name.
func (m *Manager) Add(def model.ToolDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools[def.Name] = def
}

// AddAll registers multiple tools.
func (m *Manager) AddAll(defs []model.ToolDefinition) {
	for _, d := range defs {
		m.Add(d)
	}
}

// Remove unregisters a tool by name. A no-op if the tool isn't registered.
func (m *Manager) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tools, name)
}

// Update mutates an existing tool's definition via fn.
func (m *Manager) Update(name string, fn func(*model.ToolDefinition)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	def, ok := m.tools[name]
	if !ok {
		return errs.New(errs.KindToolNotFound, "Manager.Update", "tool "+name+" not registered")
	}
	fn(&def)
	m.tools[name] = def
	return nil
}

// Get looks up a tool by name.
func (m *Manager) Get(name string) (model.ToolDefinition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.tools[name]
	return def, ok
}

// List returns every registered tool's definition, in no particular order.
func (m *Manager) List() []model.ToolDefinition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.ToolDefinition, 0, len(m.tools))
	for _, d := range m.tools {
		out = append(out, d)
	}
	return out
}

// Definitions returns the registered tools as model.ToolDefinition values
// suitable for attaching to a model.Params.Tools list.
func (m *Manager) Definitions() []model.ToolDefinition { return m.List() }
