package services

import (
	"fmt"
	"log/slog"

	"registration-system/utils"

	pubnub "github.com/pubnub/go"
)

const adminChannel = "admin-registrations"

// Notifier pushes realtime status updates over PubNub. Publishes are
// fire-and-forget and go through a circuit breaker so a broken realtime
// backend cannot slow request handling down.
type Notifier struct {
	pubnub  *pubnub.PubNub
	breaker *utils.CircuitBreaker
}

func NewNotifier(pn *pubnub.PubNub) *Notifier {
	return &Notifier{
		pubnub:  pn,
		breaker: utils.NewCircuitBreaker("pubnub"),
	}
}

// NotifyUser publishes to the user's private channel.
func (n *Notifier) NotifyUser(userID string, payload map[string]any) {
	n.publish(fmt.Sprintf("user-%s", userID), payload)
}

// NotifyAdmins publishes to the shared admin channel.
func (n *Notifier) NotifyAdmins(payload map[string]any) {
	n.publish(adminChannel, payload)
}

func (n *Notifier) publish(channel string, payload map[string]any) {
	if n.pubnub == nil {
		return
	}

	_, err := n.breaker.Execute(func() (any, error) {
		_, st, err := n.pubnub.Publish().
			Channel(channel).
			Message(payload).
			Execute()
		if err != nil {
			return nil, err
		}
		if st.Error != nil {
			return nil, fmt.Errorf("pubnub publish failed with status %d: %w", st.StatusCode, st.Error)
		}
		return nil, nil
	})
	if err != nil {
		slog.Warn("realtime publish dropped", "channel", channel, "error", err)
	}
}
