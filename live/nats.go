package live

import (
	"strings"

	"github.com/google/uuid"
	"github.com/mbolis/formify/log"
	"github.com/nats-io/nats.go"
)

const subjectPrefix = "formify.reports."

func Subject(formID uuid.UUID) string {
	return subjectPrefix + formID.String()
}

// Notifier is satisfied by *Hub and *NATSNotifier.
type Notifier interface {
	FormChanged(formID uuid.UUID)
}

// NATSNotifier publishes form changes on NATS so that every instance sharing
// the server updates its own subscribers, see Bridge. Without a connection,
// or when publishing fails, it signals the local hub directly.
type NATSNotifier struct {
	nc    *nats.Conn
	local Notifier
}

func NewNATSNotifier(nc *nats.Conn, local Notifier) *NATSNotifier {
	return &NATSNotifier{nc: nc, local: local}
}

func (n *NATSNotifier) FormChanged(formID uuid.UUID) {
	if n.nc == nil {
		n.local.FormChanged(formID)
		return
	}
	if err := n.nc.Publish(Subject(formID), []byte(formID.String())); err != nil {
		log.WithFields(log.Fields{"form": formID}).Warnf("live.publish: %v", err)
		n.local.FormChanged(formID)
	}
}

// Bridge forwards form changes published on NATS to the local hub.
func Bridge(nc *nats.Conn, hub Notifier) (*nats.Subscription, error) {
	return nc.Subscribe(subjectPrefix+"*", func(m *nats.Msg) {
		formID, err := parseSubject(m.Subject)
		if err != nil {
			log.Debugf("live.bridge: ignoring subject %q", m.Subject)
			return
		}
		hub.FormChanged(formID)
	})
}

func parseSubject(subject string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimPrefix(subject, subjectPrefix))
}
