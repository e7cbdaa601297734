/*
Package events carries progress notifications from the run pipeline to
whoever is watching: the CLI progress printer, and tests.

A Broker fans each published Event out to every Subscriber over buffered
channels. Publishing never blocks on a slow subscriber; a full subscriber
buffer drops the event for that subscriber only. Stop delivers what is still
queued and then closes every subscriber channel.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for ev := range sub {
			fmt.Println(ev.Type, ev.Message)
		}
	}()

Components that only send take a Publisher; Discard satisfies it when nobody
is listening.
*/
package events
