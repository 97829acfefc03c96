package session

import "testing"

func TestNotifier_FiltersByClient(t *testing.T) {
	n := NewNotifier()

	var mine, all []Event
	unsubscribe := n.Subscribe("a", func(e Event) { mine = append(mine, e) })
	n.Subscribe("", func(e Event) { all = append(all, e) })

	n.Publish(Event{Client: "a", Kind: EventTokenSet})
	n.Publish(Event{Client: "b", Kind: EventLoggedOut})

	if len(mine) != 1 || mine[0].Kind != EventTokenSet {
		t.Errorf("client subscriber got %v, want one %s", mine, EventTokenSet)
	}
	if len(all) != 2 {
		t.Errorf("wildcard subscriber got %d events, want 2", len(all))
	}

	unsubscribe()
	unsubscribe()
	n.Publish(Event{Client: "a", Kind: EventLoggedOut})

	if len(mine) != 1 {
		t.Errorf("unsubscribed listener got %d events, want 1", len(mine))
	}
	if n.Len() != 1 {
		t.Errorf("Len() = %d, want 1", n.Len())
	}
}
