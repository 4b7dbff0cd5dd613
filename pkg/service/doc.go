// Package service keeps track of script runs started by long-lived
// front-ends (the HTTP operator API and the MCP server). Each run owns one
// invocation; its sessions can be inspected, fed input and killed until the
// run is stopped.
package service
