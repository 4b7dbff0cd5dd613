/*
Package domain contains the core models of the launchpad engine.

It defines the declarative script model (Script, ShellStep, ScriptStep, Trigger),
the resolved execution context handed to the process supervisor, and the error
kinds that abort a run. The package is kept free of I/O so that loaders,
supervisors and stores can be swapped independently.

# Key Entities

  - Script: an ordered list of steps plus the daemon flag.
  - ShellStep: feeds commands to a named session and waits for a trigger or exit.
  - ScriptStep: runs another script to completion with a parameter overlay.
  - Trigger: a pattern over session output plus a continuation mode (done/kill).
  - ExecutionContext: working directory, virtual environment and env overlay.
*/
package domain
