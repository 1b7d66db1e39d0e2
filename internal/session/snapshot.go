package session

// Participant is one connected member of a room. ConnectionID is
// transport-scoped and changes across reconnects; UserID is the durable
// identity and is what "is this me" and kick targeting compare against.
type Participant struct {
	ConnectionID string  `json:"connectionId"`
	DisplayName  string  `json:"displayName"`
	UserID       string  `json:"userId"`
	Vote         *string `json:"vote"`
}

// Snapshot is the server-authoritative room state. Every pushed event
// carries a complete Snapshot that replaces the previous one wholesale; the
// client never merges fields.
type Snapshot struct {
	RoomID       string        `json:"roomId"`
	StoryTitle   string        `json:"storyTitle,omitempty"`
	Revealed     bool          `json:"revealed"`
	Participants []Participant `json:"participants"`
}

// clone returns a copy safe to hand to observers.
func (s *Snapshot) clone() Snapshot {
	out := *s
	out.Participants = make([]Participant, len(s.Participants))
	copy(out.Participants, s.Participants)
	return out
}

// DefaultDeck is the card set offered for voting.
func DefaultDeck() []string {
	return []string{"1", "2", "3", "5", "8", "13", "20", "?", "☕"}
}
