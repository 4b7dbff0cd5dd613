/*
Package session tracks the live shells of an invocation and their records.

A Registry maps session ids to supervised shells for the duration of one
top-level invocation. Steps that name the same id reach the same process;
acquisition is serialized per id so a reused id never spawns twice. Every
entry remembers the script frame that spawned it, which decides who may
terminate it when a script finishes.

A Manager persists session records through a ports.SessionStore and, when a
ports.DistributedLocker is configured, serializes work across replicas.
*/
package session
