package rbac

// Module is a functional area of the product that permissions attach to.
type Module string

// Action is a named operation within a module.
type Action string

// Known modules.
const (
	ModuleDashboard   Module = "dashboard"
	ModuleIngredients Module = "ingredients"
	ModuleRecipes     Module = "recipes"
	ModuleInventory   Module = "inventory"
	ModuleOrders      Module = "orders"
	ModuleReports     Module = "reports"
	ModuleUsers       Module = "users"
	ModuleSettings    Module = "settings"
	ModuleFinancial   Module = "financial"
)

// Common actions.
const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Module-specific actions.
const (
	ActionExport       Action = "export"
	ActionPublish      Action = "publish"
	ActionAdjust       Action = "adjust"
	ActionProcess      Action = "process"
	ActionSchedule     Action = "schedule"
	ActionAssignRoles  Action = "assign_roles"
	ActionBilling      Action = "billing"
	ActionIntegrations Action = "integrations"
	ActionViewCosts    Action = "view_costs"
	ActionEditPrices   Action = "edit_prices"
	ActionViewProfits  Action = "view_profits"
)

// Matrix is the registry of valid module/action pairs. It is built once at
// startup and never mutated, so it is safe to share across requests without
// synchronization.
type Matrix struct {
	order   []Module
	actions map[Module][]Action
}

// DefaultMatrix returns the full permission matrix of the product.
func DefaultMatrix() *Matrix {
	m := &Matrix{actions: make(map[Module][]Action)}
	add := func(module Module, actions ...Action) {
		m.order = append(m.order, module)
		m.actions[module] = actions
	}

	add(ModuleDashboard, ActionView)
	add(ModuleIngredients, ActionView, ActionCreate, ActionEdit, ActionDelete, ActionExport)
	add(ModuleRecipes, ActionView, ActionCreate, ActionEdit, ActionDelete, ActionPublish)
	add(ModuleInventory, ActionView, ActionCreate, ActionEdit, ActionDelete, ActionAdjust)
	add(ModuleOrders, ActionView, ActionCreate, ActionEdit, ActionDelete, ActionProcess)
	add(ModuleReports, ActionView, ActionCreate, ActionExport, ActionSchedule)
	add(ModuleUsers, ActionView, ActionCreate, ActionEdit, ActionDelete, ActionAssignRoles)
	add(ModuleSettings, ActionView, ActionEdit, ActionBilling, ActionIntegrations)
	add(ModuleFinancial, ActionViewCosts, ActionEditPrices, ActionViewProfits)

	return m
}

// Modules returns the modules in declaration order.
func (m *Matrix) Modules() []Module {
	out := make([]Module, len(m.order))
	copy(out, m.order)
	return out
}

// Actions returns the valid actions of a module in declaration order. An
// unknown module yields an empty slice, not an error.
func (m *Matrix) Actions(module Module) []Action {
	actions := m.actions[module]
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// Contains reports whether the module/action pair is registered.
func (m *Matrix) Contains(module Module, action Action) bool {
	for _, a := range m.actions[module] {
		if a == action {
			return true
		}
	}
	return false
}

// Snapshot returns the whole matrix as a plain map, in the shape clients
// render permission editors from.
func (m *Matrix) Snapshot() map[Module][]Action {
	out := make(map[Module][]Action, len(m.order))
	for _, module := range m.order {
		out[module] = m.Actions(module)
	}
	return out
}
