// Package broadcast fans typed messages out to in-process subscribers and
// bridges state transition events onto them.
//
// MemoryBroadcaster never blocks a publisher: a subscriber whose buffer is
// full misses the message and is dropped. Subscribers may restrict themselves
// to a set of topics.
//
//	events := broadcast.NewMemoryBroadcaster[statehistory.Event](64)
//	defer events.Close()
//
//	states := statehistory.New(store, registry,
//	    statehistory.WithNotifier(broadcast.NewNotifier(events)),
//	)
//
//	sub := broadcast.Transitioned(ctx, events)
//	for msg := range sub.Receive(ctx) {
//	    log.Info("state changed", "to", msg.Data.To)
//	}
package broadcast
