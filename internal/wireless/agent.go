package wireless

import (
	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	agentBusName = "com.vagabond.manager"
	agentPath    = dbus.ObjectPath("/iwd/agent")
	agentIface   = "net.connman.iwd.SignalLevelAgent"
)

// signalAgent implements net.connman.iwd.SignalLevelAgent: iwd calls Changed
// whenever the connected network's signal level crosses one of
// signalThresholds, and Release when the agent is being torn down.
type signalAgent struct {
	logger *zap.SugaredLogger
}

// Changed is exported as the SignalLevelAgent.Changed method; level is an
// index into signalThresholds, per the iwd agent API.
func (a *signalAgent) Changed(path dbus.ObjectPath, level int16) *dbus.Error {
	a.logger.Debugw("wireless: signal level changed", "path", path, "level", level)
	return nil
}

// Release is exported as SignalLevelAgent.Release.
func (a *signalAgent) Release(path dbus.ObjectPath) *dbus.Error {
	a.logger.Debugw("wireless: signal level agent released", "path", path)
	return nil
}

// RegisterSignalAgent exports the agent object at agentPath under the
// well-known name agentBusName and registers it against the first station,
// per §4.5's optional signal-level agent.
func (br *Broker) RegisterSignalAgent() error {
	conn, err := br.handle()
	if err != nil {
		return err
	}

	reply, err := conn.RequestName(agentBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return errors.Wrap(err, "wireless: RequestName")
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.Errorf("wireless: bus name %s already owned", agentBusName)
	}

	agent := &signalAgent{logger: br.logger}
	if err := conn.Export(agent, agentPath, agentIface); err != nil {
		return errors.Wrap(err, "wireless: export signal agent")
	}

	station, err := getFirst(br, ifaceStation, newStationProxy)
	if err != nil {
		return err
	}
	return br.stationRegisterSignalAgent(station.path, agentPath)
}
