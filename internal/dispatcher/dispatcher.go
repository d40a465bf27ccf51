package dispatcher

import (
	"alerts-service/internal/logging"
	"alerts-service/internal/models"
	"alerts-service/internal/registry"
)

// Dispatcher is the only component that writes to connections. It reads
// registry snapshots and skips connections that are no longer open;
// removal stays the gateway's job on its own close/error callbacks, so
// the two never race to mutate the registry.
//
// Delivery is fire-and-forget: no ack, no retry, no guarantee beyond
// "was open at time of send".
type Dispatcher struct {
	registry *registry.Registry
	logger   *logging.Logger
}

func New(reg *registry.Registry, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{registry: reg, logger: logger}
}

// SendToUser pushes an envelope to every open connection the user holds.
// Returns the number of connections written.
func (d *Dispatcher) SendToUser(userID int64, env models.Envelope) int {
	sent := 0
	for _, conn := range d.registry.Get(userID) {
		if !conn.IsOpen() {
			continue
		}
		if err := conn.WriteEnvelope(env); err != nil {
			d.logger.Errorf("Failed to push %s to user %d: %v", env.Type, userID, err)
			continue
		}
		sent++
	}
	return sent
}

// SendToUsers pushes an envelope to each listed user.
func (d *Dispatcher) SendToUsers(userIDs []int64, env models.Envelope) int {
	sent := 0
	for _, id := range userIDs {
		sent += d.SendToUser(id, env)
	}
	return sent
}

// Broadcast pushes an envelope to every connected user.
func (d *Dispatcher) Broadcast(env models.Envelope) int {
	sent := 0
	for _, id := range d.registry.UserIDs() {
		sent += d.SendToUser(id, env)
	}
	d.logger.Debugf("Broadcast %s reached %d connections", env.Type, sent)
	return sent
}
