// Package connectors provides implementations of the Connector interface.
// A connector reads resources from a tree and reports changes to it.
//
// The filesystem connector is the only one: workspaces are local folders.
package connectors
