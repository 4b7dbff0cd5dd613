/*
Package ports defines the driven ports (interfaces) of the launchpad engine.

These interfaces decouple the sequencer from where scripts come from, where
session records are kept and where process output goes.

# Key Interfaces

  - ScriptLoader: locates raw script definitions (filesystem, memory).
  - Spawner / Shell: start and drive supervised shell processes.
  - SessionStore: persists session records for operator introspection.
  - DistributedLocker: serializes top-level invocations across hosts.
  - OutputSink: receives every output fragment of every session.
*/
package ports
