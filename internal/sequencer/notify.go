package sequencer

// ChangeKind tells subscribers which state moved.
type ChangeKind int

const (
	ProjectChanged ChangeKind = iota
	PlaybackChanged
)

func (k ChangeKind) String() string {
	switch k {
	case ProjectChanged:
		return "project"
	case PlaybackChanged:
		return "playback"
	default:
		return "unknown"
	}
}

// Change is sent to subscribers after a mutation.
type Change struct {
	Kind ChangeKind
}

const subscriberBuffer = 16

// Subscribe returns a channel that receives a Change after every mutation,
// and a cancel func that closes it. Sends never block: a subscriber that
// falls behind misses intermediate changes and should re-read the snapshot.
func (s *Sequencer) Subscribe() (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Change, subscriberBuffer)
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// notifyLocked must be called with s.mu held.
func (s *Sequencer) notifyLocked(kind ChangeKind) {
	for _, ch := range s.subs {
		select {
		case ch <- Change{Kind: kind}:
		default:
		}
	}
}
