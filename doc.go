/*
Package launchpad runs declarative install and launch scripts against
supervised shell sessions.

A script is an ordered list of steps. A shell.run step writes commands into a
named shell session and waits either for the process to exit or for one of
its output triggers to match; a script.start step runs another script, which
inherits the caller's sessions and context. Daemon scripts leave their
sessions running when the last step is done, so a launcher can start a server
and hand it over to the operator.

# Script format

	{
	  "daemon": true,
	  "run": [
	    {"method": "script.start", "params": {"uri": "install.json", "params": {"venv": "env", "path": "app"}}},
	    {"method": "shell.run", "params": {
	      "id": "server", "path": "app", "venv": "env",
	      "message": "python app.py",
	      "on": [{"event": "/Running on/", "done": true}, {"event": "/Traceback/", "kill": true}]
	    }}
	  ]
	}

Nested scripts read their params with {{ args.<key> }} expressions.

# Usage

	eng, err := launchpad.New("./scripts")
	if err != nil {
		log.Fatal(err)
	}

	inv, res, err := eng.Run(ctx, "start.json", nil)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("alive:", res.Alive)

	// Daemon sessions belong to the invocation until it is shut down.
	defer inv.Shutdown(context.Background())

Sessions are terminated when their script finishes (unless it is a daemon)
and when a run aborts. A crash of the host process can still orphan them;
configure a session store to keep track of what was started.
*/
package launchpad
