// Package redis connects to Redis with go-redis and carries state transition
// events between processes over pub/sub.
//
// Connect retries until the server answers a ping, Healthcheck returns a probe
// for liveness endpoints, and Notifier implements statehistory.Notifier by
// publishing each event as JSON on a channel named after it:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	notifier := redis.NewNotifier(client, cfg.ChannelPrefix)
//	states := statehistory.New(store, registry, statehistory.WithNotifier(notifier))
//
// Another process consumes the events with Subscribe:
//
//	sub, err := notifier.Subscribe(ctx, statehistory.EventTransitioned)
//	if err != nil {
//	    return err
//	}
//	defer sub.Close()
//	for event := range sub.Events() {
//	    log.Info("state changed", "object_id", event.ObjectID, "to", event.To)
//	}
//
// Delivery is fire-and-forget: events published while nobody listens are lost.
package redis
