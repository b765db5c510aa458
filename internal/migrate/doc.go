// Package migrate runs schema migrations for a set of independent modules.
// Each module gets its own engine with its own locations and schema history
// table, and modules that share a database never see each other's history.
// Modules are migrated sequentially, in declaration order, once at startup.
package migrate
