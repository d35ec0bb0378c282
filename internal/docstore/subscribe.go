package docstore

const subscriptionBuffer = 64

// Subscription receives store changes on C until it is closed.
//
// Delivery never blocks the store: if a subscriber falls behind, changes are
// dropped, and the subscriber should re-read whatever it renders.
type Subscription struct {
	C <-chan Change

	c chan Change
	s *Service
}

func (s *Service) Subscribe() *Subscription {
	c := make(chan Change, subscriptionBuffer)
	sub := &Subscription{C: c, c: c, s: s}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	return sub
}

// Unsubscribe stops delivery and closes sub.C. It is safe to call more than once.
func (s *Service) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	close(sub.c)
}

func (sub *Subscription) Close() {
	sub.s.Unsubscribe(sub)
}

func (s *Service) publish(ch Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		select {
		case sub.c <- ch:
		default:
		}
	}
}
