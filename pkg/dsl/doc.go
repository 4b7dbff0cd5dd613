/*
Package dsl builds launchpad scripts in Go instead of JSON or YAML files.

It is useful for generated scripts, tests and embedding launchpad in other
programs. The result is an in-memory loader that can be passed to
launchpad.New with launchpad.WithLoader.

Example usage:

	b := dsl.New()

	b.Add("install.json").
		Shell("pip", "pip install -r requirements.txt").
		Path("app").Venv("env")

	b.Add("start.json").
		Daemon().
		Start("install.json", nil).
		Shell("server", "python app.py").Path("app").Venv("env").
		Done(`/Running on (http:\/\/\S+)/`)

	loader, err := b.Build()
	// ... launchpad.New("", launchpad.WithLoader(loader))
*/
package dsl
