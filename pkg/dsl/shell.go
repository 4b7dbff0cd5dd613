package dsl

import "github.com/aretw0/launchpad/pkg/schema"

// ShellBuilder configures a shell.run step.
// Its ScriptBuilder methods continue with the enclosing script.
type ShellBuilder struct {
	script *ScriptBuilder
	params *schema.ShellParams
}

// Path sets the working directory, relative to the inherited one.
func (b *ShellBuilder) Path(dir string) *ShellBuilder {
	b.params.Path = dir
	return b
}

// Venv activates a virtual environment before the commands run.
func (b *ShellBuilder) Venv(dir string) *ShellBuilder {
	b.params.Venv = dir
	return b
}

// Env adds an environment variable for a fresh session.
func (b *ShellBuilder) Env(key, value string) *ShellBuilder {
	if b.params.Env == nil {
		b.params.Env = make(map[string]string)
	}
	b.params.Env[key] = value
	return b
}

// Done advances when the output matches pattern, leaving the session alive.
func (b *ShellBuilder) Done(pattern string) *ShellBuilder {
	b.params.On = append(b.params.On, schema.TriggerDocument{Event: pattern, Done: true})
	return b
}

// Kill terminates the session when the output matches pattern, then advances.
func (b *ShellBuilder) Kill(pattern string) *ShellBuilder {
	b.params.On = append(b.params.On, schema.TriggerDocument{Event: pattern, Kill: true})
	return b
}

// Shell appends another shell.run step to the enclosing script.
func (b *ShellBuilder) Shell(id string, commands ...string) *ShellBuilder {
	return b.script.Shell(id, commands...)
}

// Start appends a script.start step to the enclosing script.
func (b *ShellBuilder) Start(uri string, params map[string]any) *ScriptBuilder {
	return b.script.Start(uri, params)
}

// Add switches to another script of the same builder.
func (b *ShellBuilder) Add(ref string) *ScriptBuilder {
	return b.script.Add(ref)
}
