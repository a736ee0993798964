package httpapi

import (
	"github.com/proctorlabs/vagabond/internal/daemons"
	"github.com/proctorlabs/vagabond/internal/system"
	"github.com/proctorlabs/vagabond/internal/wireless"
)

// App is the fully-assembled application object the State Manager holds a
// back-reference to (§9's "Lifecycle back-reference" design note), giving
// the WebSocket dispatcher a way to reach every other component without a
// package-level global.
type App struct {
	Wireless *wireless.Broker
	Daemons  *daemons.Registry
	System   *system.Configurator
}
