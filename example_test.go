package launchpad_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/launchpad"
	"github.com/aretw0/launchpad/pkg/adapters/memory"
)

// ExampleNew_memory runs a daemon script defined in memory.
func ExampleNew_memory() {
	loader := memory.NewLoader(map[string]string{
		"start.json": `{
			"daemon": true,
			"run": [
				{"method": "shell.run", "params": {"id": "c", "message": "echo ready", "on": [{"event": "/ready/", "done": true}]}}
			]
		}`,
	})

	eng, err := launchpad.New("", launchpad.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	inv, res, err := eng.Run(ctx, "start.json", nil)
	if err != nil {
		log.Fatal(err)
	}
	defer inv.Shutdown(ctx)

	fmt.Println("alive:", res.Alive)
	// Output: alive: [c]
}
